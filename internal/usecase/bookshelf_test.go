package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

func TestAddToShelfDefaultsToActor(t *testing.T) {
	books := &fakeBookRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Book, error) {
			return &domain.Book{ID: id}, nil
		},
	}
	var created *domain.BookshelfItem
	shelf := &fakeShelfRepo{
		GetByUserAndBookFn: func(context.Context, string, string) (*domain.BookshelfItem, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(_ context.Context, item domain.BookshelfItem) error {
			created = &item
			return nil
		},
	}
	svc := NewBookshelfService(shelf, books)
	actor := abilityFor(t, domain.RoleUser, "u1")

	item, err := svc.AddToShelf(context.Background(), actor, "", "b1", ShelfItemInput{Rating: 4})
	if err != nil {
		t.Fatalf("add to shelf: %v", err)
	}
	if created == nil {
		t.Fatal("item was not persisted")
	}
	if item.UserID != "u1" {
		t.Errorf("user ID = %q, want the actor", item.UserID)
	}
	if item.ReadStatus != domain.ReadStatusToRead {
		t.Errorf("read status = %q, want default to-read", item.ReadStatus)
	}
	if item.Rating != 4 {
		t.Errorf("rating = %d", item.Rating)
	}
}

func TestAddToShelfDeniedForOtherUsersShelf(t *testing.T) {
	svc := NewBookshelfService(&fakeShelfRepo{}, &fakeBookRepo{})
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.AddToShelf(context.Background(), actor, "u2", "b1", ShelfItemInput{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestAddToShelfSuperAdminMayTargetAnyUser(t *testing.T) {
	books := &fakeBookRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Book, error) {
			return &domain.Book{ID: id}, nil
		},
	}
	shelf := &fakeShelfRepo{
		GetByUserAndBookFn: func(context.Context, string, string) (*domain.BookshelfItem, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(context.Context, domain.BookshelfItem) error { return nil },
	}
	svc := NewBookshelfService(shelf, books)
	actor := abilityFor(t, domain.RoleSuperAdmin, "root")

	item, err := svc.AddToShelf(context.Background(), actor, "u2", "b1", ShelfItemInput{})
	if err != nil {
		t.Fatalf("add to shelf: %v", err)
	}
	if item.UserID != "u2" {
		t.Errorf("user ID = %q, want the targeted user", item.UserID)
	}
}

func TestAddToShelfRatingOutOfRange(t *testing.T) {
	svc := NewBookshelfService(&fakeShelfRepo{}, &fakeBookRepo{})
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.AddToShelf(context.Background(), actor, "u1", "b1", ShelfItemInput{Rating: 6})
	if !errors.Is(err, ErrRatingOutOfRange) {
		t.Fatalf("expected ErrRatingOutOfRange, got %v", err)
	}
}

func TestAddToShelfUnknownBook(t *testing.T) {
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewBookshelfService(&fakeShelfRepo{}, books)
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.AddToShelf(context.Background(), actor, "u1", "missing", ShelfItemInput{})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestAddToShelfRejectsDuplicate(t *testing.T) {
	books := &fakeBookRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Book, error) {
			return &domain.Book{ID: id}, nil
		},
	}
	shelf := &fakeShelfRepo{
		GetByUserAndBookFn: func(context.Context, string, string) (*domain.BookshelfItem, error) {
			return &domain.BookshelfItem{ID: "existing"}, nil
		},
	}
	svc := NewBookshelfService(shelf, books)
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.AddToShelf(context.Background(), actor, "u1", "b1", ShelfItemInput{})
	if !errors.Is(err, ErrAlreadyShelved) {
		t.Fatalf("expected ErrAlreadyShelved, got %v", err)
	}
}

func TestGetItemEnforcesOwnership(t *testing.T) {
	shelf := &fakeShelfRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.BookshelfItem, error) {
			return &domain.BookshelfItem{ID: id, UserID: "u2"}, nil
		},
	}
	svc := NewBookshelfService(shelf, &fakeBookRepo{})

	if _, err := svc.GetItem(context.Background(), abilityFor(t, domain.RoleUser, "u1"), "i1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for foreign item, got %v", err)
	}
	if _, err := svc.GetItem(context.Background(), abilityFor(t, domain.RoleAdmin, "a1"), "i1"); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}

func TestUpdateItemRejectsInvertedReadDates(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	svc := NewBookshelfService(&fakeShelfRepo{}, &fakeBookRepo{})
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.UpdateItem(context.Background(), actor, "i1", ShelfItemInput{StartReadDate: &start, EndReadDate: &end})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRemoveItemEnforcesOwnership(t *testing.T) {
	var deleted string
	shelf := &fakeShelfRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.BookshelfItem, error) {
			return &domain.BookshelfItem{ID: id, UserID: "u1"}, nil
		},
		DeleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewBookshelfService(shelf, &fakeBookRepo{})

	if err := svc.RemoveItem(context.Background(), abilityFor(t, domain.RoleUser, "u2"), "i1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.RemoveItem(context.Background(), abilityFor(t, domain.RoleUser, "u1"), "i1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if deleted != "i1" {
		t.Errorf("deleted %q", deleted)
	}
}

func TestDueSoonAppliesDefaults(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	var gotBefore time.Time
	var gotLimit int
	shelf := &fakeShelfRepo{
		ListDueSoonFn: func(_ context.Context, _ string, before time.Time, limit int) ([]domain.BookshelfItem, error) {
			gotBefore = before
			gotLimit = limit
			return nil, nil
		},
	}
	svc := NewBookshelfService(shelf, &fakeBookRepo{}).WithClock(fixedClock(now))
	actor := abilityFor(t, domain.RoleUser, "u1")

	if _, err := svc.DueSoon(context.Background(), actor, "", 0, 0); err != nil {
		t.Fatalf("due soon: %v", err)
	}
	if want := now.Add(7 * 24 * time.Hour); !gotBefore.Equal(want) {
		t.Errorf("cutoff = %v, want %v", gotBefore, want)
	}
	if gotLimit != 20 {
		t.Errorf("limit = %d, want 20", gotLimit)
	}
}
