package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

func TestGetUserOwnerScoped(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "kim"}, nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	if _, err := svc.GetUser(context.Background(), actor, "u1"); err != nil {
		t.Fatalf("self read: %v", err)
	}
	if _, err := svc.GetUser(context.Background(), actor, "u2"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for foreign profile, got %v", err)
	}
}

func TestCreateUserProvisionsVerifiedAccount(t *testing.T) {
	var created domain.User
	users := &fakeUserRepo{
		GetByUsernameFn: func(context.Context, string) (*domain.User, error) {
			return nil, repository.ErrNotFound
		},
		GetByEmailFn: func(context.Context, string) (*domain.User, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(_ context.Context, user domain.User) error {
			created = user
			return nil
		},
	}
	mailer := &recordingMailer{}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, mailer, nil, "https://app.test")

	role := domain.RoleModerator
	user, err := svc.CreateUser(context.Background(), abilityFor(t, domain.RoleAdmin, "a1"), CreateUserInput{
		Username: "kim",
		Email:    "Kim@Example.COM",
		Password: "correct horse battery",
		Role:     &role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Email != "kim@example.com" {
		t.Errorf("email = %q, want lowercased", created.Email)
	}
	if created.PasswordHash != "hashed:correct horse battery" {
		t.Errorf("password hash = %q", created.PasswordHash)
	}
	if !created.Verified {
		t.Error("provisioned account should be verified")
	}
	if created.Role != domain.RoleModerator {
		t.Errorf("role = %q, want moderator", created.Role)
	}
	if user.ID == "" {
		t.Error("returned user has no id")
	}
	if len(mailer.sent) != 0 {
		t.Errorf("no mail expected, sent %v", mailer.sent)
	}
}

func TestCreateUserNeedsUnconditionalGrant(t *testing.T) {
	svc := NewUserService(&fakeUserRepo{}, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")

	_, err := svc.CreateUser(context.Background(), abilityFor(t, domain.RoleUser, "u1"), CreateUserInput{
		Username: "kim",
		Email:    "kim@example.com",
		Password: "correct horse battery",
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	users := &fakeUserRepo{
		GetByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: "other", Username: username}, nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")

	_, err := svc.CreateUser(context.Background(), abilityFor(t, domain.RoleAdmin, "a1"), CreateUserInput{
		Username: "kim",
		Email:    "kim@example.com",
		Password: "correct horse battery",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&fakeUserRepo{}, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")

	role := domain.Role("overlord")
	_, err := svc.CreateUser(context.Background(), abilityFor(t, domain.RoleAdmin, "a1"), CreateUserInput{
		Username: "kim",
		Email:    "kim@example.com",
		Password: "correct horse battery",
		Role:     &role,
	})
	if err == nil || !strings.Contains(err.Error(), "overlord") {
		t.Fatalf("expected unknown role error, got %v", err)
	}
}

func TestUpdateUserRenameChecksAvailability(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "kim"}, nil
		},
		GetByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: "other", Username: username}, nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.UpdateUser(context.Background(), actor, "u1", UpdateUserInput{Username: ptr("taken")})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUpdateUserRoleChangeNeedsUnconditionalGrant(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "kim", Role: domain.RoleUser}, nil
		},
		UpdateFn: func(context.Context, domain.User) error { return nil },
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")

	role := domain.RoleModerator
	self := abilityFor(t, domain.RoleUser, "u1")
	if _, err := svc.UpdateUser(context.Background(), self, "u1", UpdateUserInput{Role: &role}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for self promotion, got %v", err)
	}

	admin := abilityFor(t, domain.RoleAdmin, "a1")
	user, err := svc.UpdateUser(context.Background(), admin, "u1", UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatalf("admin role change: %v", err)
	}
	if user.Role != domain.RoleModerator {
		t.Errorf("role = %q, want moderator", user.Role)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	imageKey := "profiles/u1/1"
	var deletedUser, shelfCleared, wishlistCleared string
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, ProfileImageURL: objectURLPrefix + imageKey}, nil
		},
		DeleteFn: func(_ context.Context, id string) error {
			deletedUser = id
			return nil
		},
	}
	shelf := &fakeShelfRepo{
		DeleteByUserFn: func(_ context.Context, userID string) (int64, error) {
			shelfCleared = userID
			return 2, nil
		},
	}
	wishlists := &fakeWishlistRepo{
		DeleteByUserFn: func(_ context.Context, userID string) (int64, error) {
			wishlistCleared = userID
			return 1, nil
		},
	}
	objects := &recordingObjects{}
	tx := &fakeTx{stores: port.TxStores{Users: users, Bookshelf: shelf, Wishlists: wishlists}}
	svc := NewUserService(users, tx, plainHasher{}, nil, &recordingMailer{}, objects, "https://app.test")

	if err := svc.DeleteUser(context.Background(), abilityFor(t, domain.RoleUser, "u1"), "u1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if deletedUser != "u1" || shelfCleared != "u1" || wishlistCleared != "u1" {
		t.Errorf("cascade touched user=%q shelf=%q wishlist=%q", deletedUser, shelfCleared, wishlistCleared)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != imageKey {
		t.Errorf("deleted objects %v, want [%s]", objects.deleted, imageKey)
	}
}

func TestDeleteUserAbortsWhenCascadeFails(t *testing.T) {
	wishlistErr := errors.New("wishlist table unavailable")
	var userDeleted bool
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, ProfileImageURL: objectURLPrefix + "profiles/u1/1"}, nil
		},
		DeleteFn: func(context.Context, string) error {
			userDeleted = true
			return nil
		},
	}
	shelf := &fakeShelfRepo{
		DeleteByUserFn: func(context.Context, string) (int64, error) { return 2, nil },
	}
	wishlists := &fakeWishlistRepo{
		DeleteByUserFn: func(context.Context, string) (int64, error) { return 0, wishlistErr },
	}
	objects := &recordingObjects{}
	tx := &fakeTx{stores: port.TxStores{Users: users, Bookshelf: shelf, Wishlists: wishlists}}
	svc := NewUserService(users, tx, plainHasher{}, nil, &recordingMailer{}, objects, "https://app.test")

	err := svc.DeleteUser(context.Background(), abilityFor(t, domain.RoleUser, "u1"), "u1")
	if !errors.Is(err, wishlistErr) {
		t.Fatalf("expected cascade error, got %v", err)
	}
	if userDeleted {
		t.Error("user row deleted after a failed cascade step")
	}
	if len(objects.deleted) != 0 {
		t.Errorf("deleted objects %v, want none", objects.deleted)
	}
}

func TestUpdatePasswordSelfRequiresCurrent(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "kim@example.com", PasswordHash: "hashed:current"}, nil
		},
		UpdateFn: func(context.Context, domain.User) error { return nil },
	}
	mailer := &recordingMailer{}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, mailer, nil, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	err := svc.UpdatePassword(context.Background(), actor, UpdatePasswordInput{NewPassword: "N3w!password"})
	if !errors.Is(err, ErrCurrentPasswordRequired) {
		t.Fatalf("expected ErrCurrentPasswordRequired, got %v", err)
	}

	err = svc.UpdatePassword(context.Background(), actor, UpdatePasswordInput{CurrentPassword: "wrong", NewPassword: "N3w!password"})
	if !errors.Is(err, ErrCurrentPasswordInvalid) {
		t.Fatalf("expected ErrCurrentPasswordInvalid, got %v", err)
	}

	err = svc.UpdatePassword(context.Background(), actor, UpdatePasswordInput{CurrentPassword: "current", NewPassword: "N3w!password"})
	if err != nil {
		t.Fatalf("self change: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].kind != "password-changed" {
		t.Fatalf("unexpected mail log %+v", mailer.sent)
	}
}

func TestUpdatePasswordAdminSkipsCurrent(t *testing.T) {
	var updated *domain.User
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "kim@example.com", PasswordHash: "hashed:old"}, nil
		},
		UpdateFn: func(_ context.Context, user domain.User) error {
			updated = &user
			return nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")
	admin := abilityFor(t, domain.RoleAdmin, "a1")

	err := svc.UpdatePassword(context.Background(), admin, UpdatePasswordInput{TargetUserID: "u1", NewPassword: "N3w!password"})
	if err != nil {
		t.Fatalf("admin change: %v", err)
	}
	if updated == nil || updated.PasswordHash != "hashed:N3w!password" {
		t.Error("password hash must be replaced")
	}
}

func TestRequestEmailChangeStoresPendingAddress(t *testing.T) {
	var updated *domain.User
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "old@example.com"}, nil
		},
		GetByEmailFn: func(context.Context, string) (*domain.User, error) {
			return nil, repository.ErrNotFound
		},
		UpdateFn: func(_ context.Context, user domain.User) error {
			updated = &user
			return nil
		},
	}
	mailer := &recordingMailer{}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, mailer, nil, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	if err := svc.RequestEmailChange(context.Background(), actor, "u1", "New@Example.com"); err != nil {
		t.Fatalf("request email change: %v", err)
	}
	if updated == nil || updated.PendingEmail == nil || *updated.PendingEmail != "new@example.com" {
		t.Fatal("pending email must be stored lowercased")
	}
	if updated.Email != "old@example.com" {
		t.Error("live address must stay until confirmation")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "new@example.com" {
		t.Fatalf("unexpected mail log %+v", mailer.sent)
	}
	if !strings.HasPrefix(mailer.sent[0].link, "https://app.test/confirm-email/") {
		t.Errorf("confirmation link = %q", mailer.sent[0].link)
	}
}

func TestRequestEmailChangeRejectsTakenAddress(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "old@example.com"}, nil
		},
		GetByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: "other", Email: email}, nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	err := svc.RequestEmailChange(context.Background(), actor, "u1", "taken@example.com")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestConfirmEmailChangePromotesPending(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)
	pending := "new@example.com"
	hash := "stored-hash"
	var updated *domain.User
	users := &fakeUserRepo{
		GetByEmailChangeTokenHashFn: func(context.Context, string) (*domain.User, error) {
			return &domain.User{
				ID:                      "u1",
				Email:                   "old@example.com",
				PendingEmail:            &pending,
				EmailChangeTokenHash:    &hash,
				EmailChangeTokenExpires: &expires,
			}, nil
		},
		UpdateFn: func(_ context.Context, user domain.User) error {
			updated = &user
			return nil
		},
	}
	svc := NewUserService(users, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, nil, "https://app.test").
		WithClock(fixedClock(now))

	user, err := svc.ConfirmEmailChange(context.Background(), "raw-token")
	if err != nil {
		t.Fatalf("confirm email change: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if updated == nil || updated.PendingEmail != nil || updated.EmailChangeTokenHash != nil {
		t.Error("pending state must be cleared")
	}
}

func TestUploadProfileImageEnforcesOwnership(t *testing.T) {
	svc := NewUserService(&fakeUserRepo{}, &fakeTx{}, plainHasher{}, nil, &recordingMailer{}, &recordingObjects{}, "https://app.test")
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.UploadProfileImage(context.Background(), actor, "u2", strings.NewReader("png"), "image/png")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
