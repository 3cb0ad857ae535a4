package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/security"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

const emailChangeTokenTTL = 24 * time.Hour

var (
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPermissionDenied indicates the actor may not touch the target record.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrCurrentPasswordRequired indicates the current password must accompany a self-service change.
	ErrCurrentPasswordRequired = errors.New("current password is required")
	// ErrCurrentPasswordInvalid indicates the provided current password is incorrect.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
)

// UserService handles user lifecycle operations.
type UserService struct {
	users             port.UserRepository
	tx                port.TransactionManager
	hasher            port.PasswordHasher
	passwordValidator *security.PasswordValidator
	mailer            port.Mailer
	objects           port.ObjectStore
	frontendURL       string
	now               func() time.Time
}

// NewUserService constructs UserService.
func NewUserService(
	users port.UserRepository,
	tx port.TransactionManager,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	mailer port.Mailer,
	objects port.ObjectStore,
	frontendURL string,
) *UserService {
	return &UserService{
		users:             users,
		tx:                tx,
		hasher:            hasher,
		passwordValidator: validator,
		mailer:            mailer,
		objects:           objects,
		frontendURL:       strings.TrimRight(frontendURL, "/"),
		now:               time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetUser loads one user. Owner-scoped actors may only read themselves.
func (s *UserService) GetUser(ctx context.Context, actor *ability.Ability, id string) (*domain.User, error) {
	if !actor.CanOwn(ability.ActionRead, ability.SubjectUser, id) {
		return nil, ErrPermissionDenied
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users.
func (s *UserService) ListUsers(ctx context.Context, page port.Page) ([]domain.User, port.PageInfo, error) {
	page = page.Normalize()
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("list users: %w", err)
	}
	return users, port.NewPageInfo(page, total), nil
}

// CreateUserInput captures an administrative account creation request.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     *domain.Role
}

// CreateUser provisions an account directly. Unlike Signup it ignores the
// registration toggle, accepts a role, and the account is live immediately
// with no verification email.
func (s *UserService) CreateUser(ctx context.Context, actor *ability.Ability, input CreateUserInput) (*domain.User, error) {
	// Owner-scoped grants never create accounts; only an unconditional
	// create grant reaches past this check.
	if !actor.CanOwn(ability.ActionCreate, ability.SubjectUser, "") {
		return nil, ErrPermissionDenied
	}

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	role := domain.RoleUser
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("unknown role %q", *input.Role)
		}
		role = *input.Role
	}

	if s.passwordValidator != nil {
		if err := s.passwordValidator.Validate(input.Password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		PasswordAlgo: s.hasher.Algorithm(),
		Role:         role,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// UpdateUserInput carries the mutable profile fields. Nil fields are left
// untouched.
type UpdateUserInput struct {
	Username *string
	Role     *domain.Role
}

// UpdateUser applies profile changes. Role changes require an unconditional
// update grant; owner-scoped actors can only rename themselves.
func (s *UserService) UpdateUser(ctx context.Context, actor *ability.Ability, id string, input UpdateUserInput) (*domain.User, error) {
	if !actor.CanOwn(ability.ActionUpdate, ability.SubjectUser, id) {
		return nil, ErrPermissionDenied
	}
	if input.Role != nil && !actor.CanOwn(ability.ActionUpdate, ability.SubjectUser, "") {
		// Admin-only field. Owner-scoped grants never reach record owner "".
		return nil, ErrPermissionDenied
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, fmt.Errorf("username is required")
		}
		if username != user.Username {
			if existing, err := s.users.GetByUsername(ctx, username); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("check username: %w", err)
			} else if existing != nil {
				return nil, ErrUsernameTaken
			}
			user.Username = username
		}
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("unknown role %q", *input.Role)
		}
		user.Role = *input.Role
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the account together with its bookshelf items and
// wishlist entries in one transaction, then discards the stored profile
// image.
func (s *UserService) DeleteUser(ctx context.Context, actor *ability.Ability, id string) error {
	if !actor.CanOwn(ability.ActionDelete, ability.SubjectUser, id) {
		return ErrPermissionDenied
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, stores port.TxStores) error {
		if _, err := stores.Bookshelf.DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete bookshelf items: %w", err)
		}
		if _, err := stores.Wishlists.DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete wishlist entries: %w", err)
		}
		if err := stores.Users.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.objects != nil && user.ProfileImageURL != "" {
		if key, ok := s.objects.KeyFromURL(user.ProfileImageURL); ok {
			// The account is gone either way; a stray object is acceptable.
			_ = s.objects.Delete(ctx, key)
		}
	}
	return nil
}

// UpdatePasswordInput captures a password change request.
type UpdatePasswordInput struct {
	TargetUserID    string
	CurrentPassword string
	NewPassword     string
}

// UpdatePassword replaces a password. Self-service changes must prove the
// current password; unconditional grants may skip it.
func (s *UserService) UpdatePassword(ctx context.Context, actor *ability.Ability, input UpdatePasswordInput) error {
	targetID := strings.TrimSpace(input.TargetUserID)
	if targetID == "" {
		targetID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionUpdatePassword, ability.SubjectUser, targetID) {
		return ErrPermissionDenied
	}

	newPassword := input.NewPassword
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if s.passwordValidator != nil {
		if err := s.passwordValidator.Validate(newPassword); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	selfChange := targetID == actor.Principal().UserID
	if selfChange {
		if input.CurrentPassword == "" {
			return ErrCurrentPasswordRequired
		}
		ok, err := s.hasher.Verify(input.CurrentPassword, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify current password: %w", err)
		}
		if !ok {
			return ErrCurrentPasswordInvalid
		}
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.PasswordAlgo = s.hasher.Algorithm()
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.mailer.SendPasswordChangedNotice(ctx, user.Email)
}

// RequestEmailChange stores the pending address and mails a confirmation
// link to it. The live address stays in place until the link is followed.
func (s *UserService) RequestEmailChange(ctx context.Context, actor *ability.Ability, targetID, newEmail string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		targetID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionUpdateEmail, ability.SubjectUser, targetID) {
		return ErrPermissionDenied
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if newEmail == user.Email {
		return fmt.Errorf("new email matches current email")
	}

	if existing, err := s.users.GetByEmail(ctx, newEmail); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return ErrEmailTaken
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate email change token: %w", err)
	}
	tokenHash := security.HashToken(rawToken)

	now := s.now().UTC()
	expires := now.Add(emailChangeTokenTTL)
	user.PendingEmail = &newEmail
	user.EmailChangeTokenHash = &tokenHash
	user.EmailChangeTokenExpires = &expires
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("store email change token: %w", err)
	}

	link := fmt.Sprintf("%s/confirm-email/%s", s.frontendURL, rawToken)
	return s.mailer.SendEmailChangeConfirmation(ctx, newEmail, link)
}

// ConfirmEmailChange redeems the token and promotes the pending address.
func (s *UserService) ConfirmEmailChange(ctx context.Context, rawToken string) (*domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByEmailChangeTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("lookup email change token: %w", err)
	}

	now := s.now().UTC()
	if user.EmailChangeTokenExpires != nil && user.EmailChangeTokenExpires.Before(now) {
		return nil, ErrTokenExpired
	}
	if user.PendingEmail == nil || *user.PendingEmail == "" {
		return nil, ErrTokenInvalid
	}

	user.Email = *user.PendingEmail
	user.PendingEmail = nil
	user.EmailChangeTokenHash = nil
	user.EmailChangeTokenExpires = nil
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update email: %w", err)
	}
	return user, nil
}

// UploadProfileImage stores the image and swaps the profile URL, discarding
// the previously stored object.
func (s *UserService) UploadProfileImage(ctx context.Context, actor *ability.Ability, targetID string, content io.Reader, contentType string) (string, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		targetID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionUploadProfileImage, ability.SubjectUser, targetID) {
		return "", ErrPermissionDenied
	}
	if s.objects == nil {
		return "", fmt.Errorf("object store not configured")
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	key := fmt.Sprintf("profiles/%s/%d", targetID, s.now().UTC().UnixMilli())
	url, err := s.objects.Put(ctx, key, content, contentType)
	if err != nil {
		return "", fmt.Errorf("store profile image: %w", err)
	}

	previous := user.ProfileImageURL
	user.ProfileImageURL = url
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, *user); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}

	if previous != "" {
		if oldKey, ok := s.objects.KeyFromURL(previous); ok {
			_ = s.objects.Delete(ctx, oldKey)
		}
	}
	return url, nil
}
