package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	slugify "github.com/gosimple/slug"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

var (
	// ErrBookNotFound indicates the referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")
	// ErrAuthorNotFound indicates a referenced author does not exist.
	ErrAuthorNotFound = errors.New("author not found")
	// ErrSlugConflict indicates slug insertion collided twice in a row.
	ErrSlugConflict = errors.New("slug already in use")
)

// uniqueSlug derives a URL slug from the title. A retry after a uniqueness
// collision gets a timestamp suffix so the second attempt cannot collide
// with the first.
func uniqueSlug(title string, attempt int, now time.Time) string {
	base := slugify.Make(title)
	if attempt == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, now.UnixMilli())
}

// BookService handles catalogue book lifecycle operations.
type BookService struct {
	books   port.BookRepository
	authors port.AuthorRepository
	tx      port.TransactionManager
	objects port.ObjectStore
	events  port.EventPublisher
	now     func() time.Time
}

// NewBookService constructs BookService.
func NewBookService(
	books port.BookRepository,
	authors port.AuthorRepository,
	tx port.TransactionManager,
	objects port.ObjectStore,
	events port.EventPublisher,
) *BookService {
	return &BookService{
		books:   books,
		authors: authors,
		tx:      tx,
		objects: objects,
		events:  events,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *BookService) WithClock(now func() time.Time) *BookService {
	if now != nil {
		s.now = now
	}
	return s
}

// BookInput carries the writable book fields.
type BookInput struct {
	Title        string
	Summary      *string
	PublishYear  *int
	Tags         []string
	Format       domain.BookFormat
	Availability domain.Availability
	Genres       []string
	PageCount    int
	Language     *string
	AuthorIDs    []string
}

func (in BookInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if in.Format != "" && in.Format != domain.FormatPhysical && in.Format != domain.FormatDigital {
		return fmt.Errorf("unknown format %q", in.Format)
	}
	switch in.Availability {
	case "", domain.AvailabilityAvailable, domain.AvailabilityUnavailable, domain.AvailabilityReserved:
	default:
		return fmt.Errorf("unknown availability %q", in.Availability)
	}
	if in.PageCount < 0 {
		return fmt.Errorf("page count must not be negative")
	}
	return nil
}

// CreateBook inserts a catalogue book and its author links. Slug uniqueness
// is enforced by the database; on collision the insert is retried once with
// a suffixed slug.
func (s *BookService) CreateBook(ctx context.Context, actorID string, input BookInput) (*domain.Book, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	for _, authorID := range input.AuthorIDs {
		if _, err := s.authors.GetByID(ctx, authorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
			}
			return nil, fmt.Errorf("lookup author: %w", err)
		}
	}

	now := s.now().UTC()
	book := domain.Book{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(input.Title),
		Summary:      input.Summary,
		PublishYear:  input.PublishYear,
		Tags:         input.Tags,
		Format:       input.Format,
		Availability: input.Availability,
		Genres:       input.Genres,
		PageCount:    input.PageCount,
		Language:     input.Language,
		AuthorIDs:    input.AuthorIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if book.Format == "" {
		book.Format = domain.FormatPhysical
	}
	if book.Availability == "" {
		book.Availability = domain.AvailabilityAvailable
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		book.Slug = uniqueSlug(book.Title, attempt, now)

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context, stores port.TxStores) error {
			if err := stores.Books.Create(ctx, book); err != nil {
				return err
			}
			if len(book.AuthorIDs) > 0 {
				if err := stores.Books.LinkAuthors(ctx, book.ID, book.AuthorIDs); err != nil {
					return fmt.Errorf("link authors: %w", err)
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create book: %w", err)
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}

	if s.events != nil {
		_ = s.events.PublishBookCreated(ctx, domain.BookCreatedEvent{
			BookID:    book.ID,
			Title:     book.Title,
			Slug:      book.Slug,
			AuthorIDs: book.AuthorIDs,
			CreatedBy: actorID,
			CreatedAt: now,
		})
	}
	return &book, nil
}

// GetBook loads one book by ID.
func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lookup book: %w", err)
	}
	return book, nil
}

// GetBookBySlug loads one book by its URL slug.
func (s *BookService) GetBookBySlug(ctx context.Context, slug string) (*domain.Book, error) {
	book, err := s.books.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lookup book: %w", err)
	}
	return book, nil
}

// ListBooks returns a page of catalogue books.
func (s *BookService) ListBooks(ctx context.Context, page port.Page) ([]domain.Book, port.PageInfo, error) {
	page = page.Normalize()
	books, total, err := s.books.List(ctx, page)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("list books: %w", err)
	}
	return books, port.NewPageInfo(page, total), nil
}

// UpdateBook applies changes and rewrites the author links. A title change
// regenerates the slug under the same collision handling as creation.
func (s *BookService) UpdateBook(ctx context.Context, id string, input BookInput) (*domain.Book, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lookup book: %w", err)
	}

	for _, authorID := range input.AuthorIDs {
		if _, err := s.authors.GetByID(ctx, authorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
			}
			return nil, fmt.Errorf("lookup author: %w", err)
		}
	}

	now := s.now().UTC()
	titleChanged := strings.TrimSpace(input.Title) != book.Title

	book.Title = strings.TrimSpace(input.Title)
	book.Summary = input.Summary
	book.PublishYear = input.PublishYear
	book.Tags = input.Tags
	if input.Format != "" {
		book.Format = input.Format
	}
	if input.Availability != "" {
		book.Availability = input.Availability
	}
	book.Genres = input.Genres
	book.PageCount = input.PageCount
	book.Language = input.Language
	book.AuthorIDs = input.AuthorIDs
	book.UpdatedAt = now

	for attempt := 0; attempt < 2; attempt++ {
		if titleChanged {
			book.Slug = uniqueSlug(book.Title, attempt, now)
		}

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context, stores port.TxStores) error {
			if err := stores.Books.Update(ctx, *book); err != nil {
				return err
			}
			if err := stores.Books.UnlinkAllAuthors(ctx, book.ID); err != nil {
				return fmt.Errorf("unlink authors: %w", err)
			}
			if len(book.AuthorIDs) > 0 {
				if err := stores.Books.LinkAuthors(ctx, book.ID, book.AuthorIDs); err != nil {
					return fmt.Errorf("link authors: %w", err)
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if !titleChanged || !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("update book: %w", err)
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}
	return book, nil
}

// DeleteBook removes the book, its author links, and every bookshelf item
// referencing it in one transaction, then discards the stored cover image.
func (s *BookService) DeleteBook(ctx context.Context, actorID, id string) error {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("lookup book: %w", err)
	}

	var shelfItemsRemoved int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, stores port.TxStores) error {
		removed, err := stores.Bookshelf.DeleteByBook(ctx, id)
		if err != nil {
			return fmt.Errorf("delete bookshelf items: %w", err)
		}
		shelfItemsRemoved = removed
		if err := stores.Books.UnlinkAllAuthors(ctx, id); err != nil {
			return fmt.Errorf("unlink authors: %w", err)
		}
		if err := stores.Books.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.objects != nil && book.CoverImageURL != "" {
		if key, ok := s.objects.KeyFromURL(book.CoverImageURL); ok {
			_ = s.objects.Delete(ctx, key)
		}
	}

	if s.events != nil {
		_ = s.events.PublishBookDeleted(ctx, domain.BookDeletedEvent{
			BookID:            id,
			DeletedBy:         actorID,
			DeletedAt:         s.now().UTC(),
			ShelfItemsRemoved: int(shelfItemsRemoved),
		})
	}
	return nil
}

// UploadCover stores the cover image and swaps the book's cover URL,
// discarding the previously stored object.
func (s *BookService) UploadCover(ctx context.Context, bookID string, content io.Reader, contentType string) (string, error) {
	if s.objects == nil {
		return "", fmt.Errorf("object store not configured")
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrBookNotFound
		}
		return "", fmt.Errorf("lookup book: %w", err)
	}

	key := fmt.Sprintf("covers/%s/%d", bookID, s.now().UTC().UnixMilli())
	url, err := s.objects.Put(ctx, key, content, contentType)
	if err != nil {
		return "", fmt.Errorf("store cover image: %w", err)
	}

	previous := book.CoverImageURL
	book.CoverImageURL = url
	book.UpdatedAt = s.now().UTC()
	if err := s.books.Update(ctx, *book); err != nil {
		return "", fmt.Errorf("update book: %w", err)
	}

	if previous != "" {
		if oldKey, ok := s.objects.KeyFromURL(previous); ok {
			_ = s.objects.Delete(ctx, oldKey)
		}
	}
	return url, nil
}
