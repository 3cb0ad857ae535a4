package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

func TestCreateBookRejectsUnknownAuthor(t *testing.T) {
	authors := &fakeAuthorRepo{
		GetByIDFn: func(context.Context, string) (*domain.Author, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewBookService(&fakeBookRepo{}, authors, &fakeTx{}, nil, nil)

	_, err := svc.CreateBook(context.Background(), "actor", BookInput{Title: "Dune", AuthorIDs: []string{"missing"}})
	if !errors.Is(err, ErrAuthorNotFound) {
		t.Fatalf("expected ErrAuthorNotFound, got %v", err)
	}
}

func TestCreateBookRejectsInvalidInput(t *testing.T) {
	svc := NewBookService(&fakeBookRepo{}, &fakeAuthorRepo{}, &fakeTx{}, nil, nil)

	cases := []BookInput{
		{Title: "   "},
		{Title: "Dune", Format: "papyrus"},
		{Title: "Dune", Availability: "lost"},
		{Title: "Dune", PageCount: -1},
	}
	for i, input := range cases {
		if _, err := svc.CreateBook(context.Background(), "actor", input); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestCreateBookAppliesDefaults(t *testing.T) {
	var created *domain.Book
	books := &fakeBookRepo{
		CreateFn: func(_ context.Context, book domain.Book) error {
			created = &book
			return nil
		},
	}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books}}, nil, nil)

	book, err := svc.CreateBook(context.Background(), "actor", BookInput{Title: "  Dune  "})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if created == nil {
		t.Fatal("book was not persisted")
	}
	if book.Title != "Dune" {
		t.Errorf("title = %q", book.Title)
	}
	if book.Slug != "dune" {
		t.Errorf("slug = %q", book.Slug)
	}
	if book.Format != domain.FormatPhysical {
		t.Errorf("format = %q, want default physical", book.Format)
	}
	if book.Availability != domain.AvailabilityAvailable {
		t.Errorf("availability = %q, want default available", book.Availability)
	}
}

func TestCreateBookRetriesSlugOnce(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	var slugs []string
	books := &fakeBookRepo{
		CreateFn: func(_ context.Context, book domain.Book) error {
			slugs = append(slugs, book.Slug)
			if len(slugs) == 1 {
				return repository.ErrConflict
			}
			return nil
		},
	}
	events := &recordingEvents{}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books}}, nil, events).
		WithClock(fixedClock(now))

	book, err := svc.CreateBook(context.Background(), "actor", BookInput{Title: "Dune"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	want := []string{"dune", fmt.Sprintf("dune-%d", now.UnixMilli())}
	if len(slugs) != 2 || slugs[0] != want[0] || slugs[1] != want[1] {
		t.Fatalf("attempted slugs %v, want %v", slugs, want)
	}
	if book.Slug != want[1] {
		t.Errorf("final slug = %q, want %q", book.Slug, want[1])
	}
	if len(events.published) != 1 {
		t.Fatalf("published %d events, want 1", len(events.published))
	}
	created, ok := events.published[0].(domain.BookCreatedEvent)
	if !ok || created.Slug != want[1] || created.CreatedBy != "actor" {
		t.Errorf("unexpected event %+v", events.published[0])
	}
}

func TestCreateBookGivesUpAfterSecondConflict(t *testing.T) {
	books := &fakeBookRepo{
		CreateFn: func(context.Context, domain.Book) error {
			return repository.ErrConflict
		},
	}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books}}, nil, nil)

	_, err := svc.CreateBook(context.Background(), "actor", BookInput{Title: "Dune"})
	if !errors.Is(err, ErrSlugConflict) {
		t.Fatalf("expected ErrSlugConflict, got %v", err)
	}
}

func TestUpdateBookKeepsSlugWhenTitleUnchanged(t *testing.T) {
	var updated *domain.Book
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return &domain.Book{ID: "b1", Title: "Dune", Slug: "dune"}, nil
		},
		UpdateFn: func(_ context.Context, book domain.Book) error {
			updated = &book
			return nil
		},
		UnlinkAllAuthorsFn: func(context.Context, string) error { return nil },
	}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books}}, nil, nil)

	book, err := svc.UpdateBook(context.Background(), "b1", BookInput{Title: "Dune", PageCount: 412})
	if err != nil {
		t.Fatalf("update book: %v", err)
	}
	if updated == nil {
		t.Fatal("book was not persisted")
	}
	if book.Slug != "dune" {
		t.Errorf("slug = %q, want unchanged", book.Slug)
	}
	if book.PageCount != 412 {
		t.Errorf("page count = %d", book.PageCount)
	}
}

func TestUpdateBookRegeneratesSlugOnRename(t *testing.T) {
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return &domain.Book{ID: "b1", Title: "Dune", Slug: "dune"}, nil
		},
		UpdateFn:           func(context.Context, domain.Book) error { return nil },
		UnlinkAllAuthorsFn: func(context.Context, string) error { return nil },
	}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books}}, nil, nil)

	book, err := svc.UpdateBook(context.Background(), "b1", BookInput{Title: "Dune Messiah"})
	if err != nil {
		t.Fatalf("update book: %v", err)
	}
	if book.Slug != "dune-messiah" {
		t.Errorf("slug = %q, want regenerated", book.Slug)
	}
}

func TestDeleteBookCascades(t *testing.T) {
	coverKey := "covers/b1/1700000000000"
	var deletedShelfFor, deletedBook string
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return &domain.Book{ID: "b1", CoverImageURL: objectURLPrefix + coverKey}, nil
		},
		UnlinkAllAuthorsFn: func(context.Context, string) error { return nil },
		DeleteFn: func(_ context.Context, id string) error {
			deletedBook = id
			return nil
		},
	}
	shelf := &fakeShelfRepo{
		DeleteByBookFn: func(_ context.Context, bookID string) (int64, error) {
			deletedShelfFor = bookID
			return 3, nil
		},
	}
	objects := &recordingObjects{}
	events := &recordingEvents{}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books, Bookshelf: shelf}}, objects, events)

	if err := svc.DeleteBook(context.Background(), "actor", "b1"); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if deletedBook != "b1" || deletedShelfFor != "b1" {
		t.Errorf("cascade touched book=%q shelf=%q", deletedBook, deletedShelfFor)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != coverKey {
		t.Errorf("deleted objects %v, want [%s]", objects.deleted, coverKey)
	}
	if len(events.published) != 1 {
		t.Fatalf("published %d events, want 1", len(events.published))
	}
	event, ok := events.published[0].(domain.BookDeletedEvent)
	if !ok || event.ShelfItemsRemoved != 3 {
		t.Errorf("unexpected event %+v", events.published[0])
	}
}

func TestDeleteBookAbortsWhenCascadeFails(t *testing.T) {
	unlinkErr := errors.New("link table unavailable")
	var bookDeleted bool
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return &domain.Book{ID: "b1", CoverImageURL: objectURLPrefix + "covers/b1/1"}, nil
		},
		UnlinkAllAuthorsFn: func(context.Context, string) error { return unlinkErr },
		DeleteFn: func(context.Context, string) error {
			bookDeleted = true
			return nil
		},
	}
	shelf := &fakeShelfRepo{
		DeleteByBookFn: func(context.Context, string) (int64, error) { return 3, nil },
	}
	objects := &recordingObjects{}
	events := &recordingEvents{}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{stores: port.TxStores{Books: books, Bookshelf: shelf}}, objects, events)

	err := svc.DeleteBook(context.Background(), "actor", "b1")
	if !errors.Is(err, unlinkErr) {
		t.Fatalf("expected cascade error, got %v", err)
	}
	// The failed transaction must leave no side effects behind it.
	if bookDeleted {
		t.Error("book row deleted after a failed cascade step")
	}
	if len(objects.deleted) != 0 {
		t.Errorf("deleted objects %v, want none", objects.deleted)
	}
	if len(events.published) != 0 {
		t.Errorf("published %d events, want none", len(events.published))
	}
}

func TestUploadCoverSwapsStoredObject(t *testing.T) {
	oldKey := "covers/b1/1"
	var updated *domain.Book
	books := &fakeBookRepo{
		GetByIDFn: func(context.Context, string) (*domain.Book, error) {
			return &domain.Book{ID: "b1", CoverImageURL: objectURLPrefix + oldKey}, nil
		},
		UpdateFn: func(_ context.Context, book domain.Book) error {
			updated = &book
			return nil
		},
	}
	objects := &recordingObjects{}
	svc := NewBookService(books, &fakeAuthorRepo{}, &fakeTx{}, objects, nil)

	url, err := svc.UploadCover(context.Background(), "b1", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("upload cover: %v", err)
	}
	if updated == nil || updated.CoverImageURL != url {
		t.Error("book must reference the new cover URL")
	}
	if len(objects.put) != 1 || !strings.HasPrefix(objects.put[0], "covers/b1/") {
		t.Errorf("stored keys %v", objects.put)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != oldKey {
		t.Errorf("deleted objects %v, want [%s]", objects.deleted, oldKey)
	}
}
