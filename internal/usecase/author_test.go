package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

func TestCreateAuthorBuildsSlugFromName(t *testing.T) {
	var created *domain.Author
	authors := &fakeAuthorRepo{
		CreateFn: func(_ context.Context, author domain.Author) error {
			created = &author
			return nil
		},
	}
	svc := NewAuthorService(authors, &fakeBookRepo{}, &fakeTx{}, nil)

	author, err := svc.CreateAuthor(context.Background(), AuthorInput{FirstName: " Ursula ", LastName: " Le Guin "})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	if created == nil {
		t.Fatal("author was not persisted")
	}
	if author.FirstName != "Ursula" || author.LastName != "Le Guin" {
		t.Errorf("name = %q %q", author.FirstName, author.LastName)
	}
	if author.Slug != "ursula-le-guin" {
		t.Errorf("slug = %q", author.Slug)
	}
}

func TestCreateAuthorRejectsEmptyName(t *testing.T) {
	svc := NewAuthorService(&fakeAuthorRepo{}, &fakeBookRepo{}, &fakeTx{}, nil)

	if _, err := svc.CreateAuthor(context.Background(), AuthorInput{FirstName: "  ", LastName: ""}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCreateAuthorRejectsDeathBeforeBirth(t *testing.T) {
	birth := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	death := birth.Add(-24 * time.Hour)
	svc := NewAuthorService(&fakeAuthorRepo{}, &fakeBookRepo{}, &fakeTx{}, nil)

	_, err := svc.CreateAuthor(context.Background(), AuthorInput{FirstName: "A", LastName: "B", BirthDate: &birth, DeathDate: &death})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCreateAuthorRetriesSlugOnce(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	var slugs []string
	authors := &fakeAuthorRepo{
		CreateFn: func(_ context.Context, author domain.Author) error {
			slugs = append(slugs, author.Slug)
			if len(slugs) == 1 {
				return repository.ErrConflict
			}
			return nil
		},
	}
	svc := NewAuthorService(authors, &fakeBookRepo{}, &fakeTx{}, nil).WithClock(fixedClock(now))

	author, err := svc.CreateAuthor(context.Background(), AuthorInput{FirstName: "Frank", LastName: "Herbert"})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	want := fmt.Sprintf("frank-herbert-%d", now.UnixMilli())
	if len(slugs) != 2 || slugs[0] != "frank-herbert" || slugs[1] != want {
		t.Fatalf("attempted slugs %v", slugs)
	}
	if author.Slug != want {
		t.Errorf("final slug = %q, want %q", author.Slug, want)
	}
}

func TestUpdateAuthorKeepsSlugWhenNameUnchanged(t *testing.T) {
	authors := &fakeAuthorRepo{
		GetByIDFn: func(context.Context, string) (*domain.Author, error) {
			return &domain.Author{ID: "a1", FirstName: "Frank", LastName: "Herbert", Slug: "frank-herbert"}, nil
		},
		UpdateFn: func(context.Context, domain.Author) error { return nil },
	}
	svc := NewAuthorService(authors, &fakeBookRepo{}, &fakeTx{}, nil)

	author, err := svc.UpdateAuthor(context.Background(), "a1", AuthorInput{FirstName: "Frank", LastName: "Herbert", Bio: ptr("Wrote Dune.")})
	if err != nil {
		t.Fatalf("update author: %v", err)
	}
	if author.Slug != "frank-herbert" {
		t.Errorf("slug = %q, want unchanged", author.Slug)
	}
	if author.Bio == nil || *author.Bio != "Wrote Dune." {
		t.Error("bio must be updated")
	}
}

func TestDeleteAuthorRejectsSelfFallback(t *testing.T) {
	authors := &fakeAuthorRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Author, error) {
			return &domain.Author{ID: id}, nil
		},
	}
	svc := NewAuthorService(authors, &fakeBookRepo{}, &fakeTx{}, nil)

	err := svc.DeleteAuthor(context.Background(), "actor", "a1", "a1")
	if !errors.Is(err, ErrFallbackAuthorInvalid) {
		t.Fatalf("expected ErrFallbackAuthorInvalid, got %v", err)
	}
}

func TestDeleteAuthorRejectsUnknownFallback(t *testing.T) {
	authors := &fakeAuthorRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Author, error) {
			if id == "a1" {
				return &domain.Author{ID: id}, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := NewAuthorService(authors, &fakeBookRepo{}, &fakeTx{}, nil)

	err := svc.DeleteAuthor(context.Background(), "actor", "a1", "missing")
	if !errors.Is(err, ErrFallbackAuthorInvalid) {
		t.Fatalf("expected ErrFallbackAuthorInvalid, got %v", err)
	}
}

func TestDeleteAuthorRewritesBookLinks(t *testing.T) {
	var replaced [2]string
	var deleted string
	authors := &fakeAuthorRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Author, error) {
			return &domain.Author{ID: id}, nil
		},
		DeleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	books := &fakeBookRepo{
		ReplaceAuthorFn: func(_ context.Context, authorID, fallbackAuthorID string) (int, error) {
			replaced = [2]string{authorID, fallbackAuthorID}
			return 2, nil
		},
	}
	events := &recordingEvents{}
	svc := NewAuthorService(authors, books, &fakeTx{stores: port.TxStores{Books: books, Authors: authors}}, events)

	if err := svc.DeleteAuthor(context.Background(), "actor", "a1", "a2"); err != nil {
		t.Fatalf("delete author: %v", err)
	}
	if replaced != [2]string{"a1", "a2"} {
		t.Errorf("replace called with %v", replaced)
	}
	if deleted != "a1" {
		t.Errorf("deleted author %q", deleted)
	}
	if len(events.published) != 1 {
		t.Fatalf("published %d events, want 1", len(events.published))
	}
	event, ok := events.published[0].(domain.AuthorDeletedEvent)
	if !ok || event.BooksRewritten != 2 || event.FallbackAuthorID != "a2" {
		t.Errorf("unexpected event %+v", events.published[0])
	}
}
