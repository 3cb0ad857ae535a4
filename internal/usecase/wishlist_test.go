package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

func TestCreateEntryAppliesDefaults(t *testing.T) {
	var created *domain.WishlistEntry
	wishlists := &fakeWishlistRepo{
		CreateFn: func(_ context.Context, entry domain.WishlistEntry) error {
			created = &entry
			return nil
		},
	}
	svc := NewWishlistService(wishlists, &fakeUserRepo{}, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	entry, err := svc.CreateEntry(context.Background(), actor, "", WishlistInput{Title: " The Dispossessed ", Author: "Ursula Le Guin"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if created == nil {
		t.Fatal("entry was not persisted")
	}
	if entry.UserID != "u1" {
		t.Errorf("user ID = %q, want the actor", entry.UserID)
	}
	if entry.Title != "The Dispossessed" {
		t.Errorf("title = %q", entry.Title)
	}
	if entry.Status != domain.WishlistPending {
		t.Errorf("status = %q, want default pending", entry.Status)
	}
	if entry.Priority != domain.PriorityMedium {
		t.Errorf("priority = %q, want default medium", entry.Priority)
	}
}

func TestCreateEntryDeniedForOtherUsersList(t *testing.T) {
	svc := NewWishlistService(&fakeWishlistRepo{}, &fakeUserRepo{}, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.CreateEntry(context.Background(), actor, "u2", WishlistInput{Title: "Dune"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateEntryRejectsUnknownStatus(t *testing.T) {
	svc := NewWishlistService(&fakeWishlistRepo{}, &fakeUserRepo{}, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	if _, err := svc.CreateEntry(context.Background(), actor, "u1", WishlistInput{Title: "Dune", Status: "someday"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestUpdateEntryEnforcesOwnership(t *testing.T) {
	wishlists := &fakeWishlistRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.WishlistEntry, error) {
			return &domain.WishlistEntry{ID: id, UserID: "u2", Title: "Dune"}, nil
		},
	}
	svc := NewWishlistService(wishlists, &fakeUserRepo{}, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.UpdateEntry(context.Background(), actor, "w1", WishlistInput{Title: "Dune"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDeleteEntryUnknown(t *testing.T) {
	wishlists := &fakeWishlistRepo{
		GetByIDFn: func(context.Context, string) (*domain.WishlistEntry, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewWishlistService(wishlists, &fakeUserRepo{}, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	err := svc.DeleteEntry(context.Background(), actor, "missing")
	if !errors.Is(err, ErrWishlistEntryNotFound) {
		t.Fatalf("expected ErrWishlistEntryNotFound, got %v", err)
	}
}

func TestSendExportEmptyWishlist(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "kim@example.com"}, nil
		},
	}
	wishlists := &fakeWishlistRepo{
		ListAllByUserFn: func(context.Context, string) ([]domain.WishlistEntry, error) {
			return nil, nil
		},
	}
	svc := NewWishlistService(wishlists, users, &recordingMailer{}, nil)
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.SendExport(context.Background(), actor, "u1")
	if !errors.Is(err, ErrWishlistEmpty) {
		t.Fatalf("expected ErrWishlistEmpty, got %v", err)
	}
}

func TestSendExportMailsAllEntries(t *testing.T) {
	users := &fakeUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "kim@example.com"}, nil
		},
	}
	wishlists := &fakeWishlistRepo{
		ListAllByUserFn: func(context.Context, string) ([]domain.WishlistEntry, error) {
			return []domain.WishlistEntry{
				{ID: "w1", Title: "Dune"},
				{ID: "w2", Title: "Hyperion"},
			}, nil
		},
	}
	mailer := &recordingMailer{}
	events := &recordingEvents{}
	svc := NewWishlistService(wishlists, users, mailer, events)
	actor := abilityFor(t, domain.RoleUser, "u1")

	count, err := svc.SendExport(context.Background(), actor, "")
	if err != nil {
		t.Fatalf("send export: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].kind != "wishlist-export" || mailer.sent[0].to != "kim@example.com" {
		t.Fatalf("unexpected mail log %+v", mailer.sent)
	}
	if len(events.published) != 1 {
		t.Fatalf("published %d events, want 1", len(events.published))
	}
	event, ok := events.published[0].(domain.WishlistMailedEvent)
	if !ok || event.EntryCount != 2 || event.UserID != "u1" {
		t.Errorf("unexpected event %+v", events.published[0])
	}
}
