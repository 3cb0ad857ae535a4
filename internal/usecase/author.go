package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

// ErrFallbackAuthorInvalid indicates the replacement author is missing or is
// the author being deleted.
var ErrFallbackAuthorInvalid = errors.New("fallback author invalid")

// AuthorService handles author lifecycle operations.
type AuthorService struct {
	authors port.AuthorRepository
	books   port.BookRepository
	tx      port.TransactionManager
	events  port.EventPublisher
	now     func() time.Time
}

// NewAuthorService constructs AuthorService.
func NewAuthorService(
	authors port.AuthorRepository,
	books port.BookRepository,
	tx port.TransactionManager,
	events port.EventPublisher,
) *AuthorService {
	return &AuthorService{
		authors: authors,
		books:   books,
		tx:      tx,
		events:  events,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthorService) WithClock(now func() time.Time) *AuthorService {
	if now != nil {
		s.now = now
	}
	return s
}

// AuthorInput carries the writable author fields.
type AuthorInput struct {
	FirstName string
	LastName  string
	Bio       *string
	BirthDate *time.Time
	DeathDate *time.Time
}

func (in AuthorInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" && strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("author name is required")
	}
	if in.BirthDate != nil && in.DeathDate != nil && in.DeathDate.Before(*in.BirthDate) {
		return fmt.Errorf("death date precedes birth date")
	}
	return nil
}

func (in AuthorInput) displayName() string {
	return strings.TrimSpace(strings.TrimSpace(in.FirstName) + " " + strings.TrimSpace(in.LastName))
}

// CreateAuthor inserts an author. Slug uniqueness is enforced by the
// database; on collision the insert is retried once with a suffixed slug.
func (s *AuthorService) CreateAuthor(ctx context.Context, input AuthorInput) (*domain.Author, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	author := domain.Author{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Bio:       input.Bio,
		BirthDate: input.BirthDate,
		DeathDate: input.DeathDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		author.Slug = uniqueSlug(input.displayName(), attempt, now)
		err = s.authors.Create(ctx, author)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create author: %w", err)
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}
	return &author, nil
}

// GetAuthor loads one author by ID.
func (s *AuthorService) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("lookup author: %w", err)
	}
	return author, nil
}

// GetAuthorBySlug loads one author by URL slug.
func (s *AuthorService) GetAuthorBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	author, err := s.authors.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("lookup author: %w", err)
	}
	return author, nil
}

// ListAuthors returns a page of authors.
func (s *AuthorService) ListAuthors(ctx context.Context, page port.Page) ([]domain.Author, port.PageInfo, error) {
	page = page.Normalize()
	authors, total, err := s.authors.List(ctx, page)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("list authors: %w", err)
	}
	return authors, port.NewPageInfo(page, total), nil
}

// UpdateAuthor applies changes. A name change regenerates the slug under the
// same collision handling as creation.
func (s *AuthorService) UpdateAuthor(ctx context.Context, id string, input AuthorInput) (*domain.Author, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("lookup author: %w", err)
	}

	now := s.now().UTC()
	nameChanged := strings.TrimSpace(input.FirstName) != author.FirstName ||
		strings.TrimSpace(input.LastName) != author.LastName

	author.FirstName = strings.TrimSpace(input.FirstName)
	author.LastName = strings.TrimSpace(input.LastName)
	author.Bio = input.Bio
	author.BirthDate = input.BirthDate
	author.DeathDate = input.DeathDate
	author.UpdatedAt = now

	for attempt := 0; attempt < 2; attempt++ {
		if nameChanged {
			author.Slug = uniqueSlug(input.displayName(), attempt, now)
		}
		err = s.authors.Update(ctx, *author)
		if err == nil {
			break
		}
		if !nameChanged || !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("update author: %w", err)
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}
	return author, nil
}

// DeleteAuthor removes the author. Books referencing them are rewritten to
// point at the fallback author; with no fallback the link is dropped. The
// rewrite and the delete commit together or not at all.
func (s *AuthorService) DeleteAuthor(ctx context.Context, actorID, id, fallbackAuthorID string) error {
	if _, err := s.authors.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAuthorNotFound
		}
		return fmt.Errorf("lookup author: %w", err)
	}

	if fallbackAuthorID != "" {
		if fallbackAuthorID == id {
			return ErrFallbackAuthorInvalid
		}
		if _, err := s.authors.GetByID(ctx, fallbackAuthorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFallbackAuthorInvalid
			}
			return fmt.Errorf("lookup fallback author: %w", err)
		}
	}

	var booksRewritten int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores port.TxStores) error {
		rewritten, err := stores.Books.ReplaceAuthor(ctx, id, fallbackAuthorID)
		if err != nil {
			return fmt.Errorf("rewrite author links: %w", err)
		}
		booksRewritten = rewritten
		if err := stores.Authors.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete author: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		_ = s.events.PublishAuthorDeleted(ctx, domain.AuthorDeletedEvent{
			AuthorID:         id,
			FallbackAuthorID: fallbackAuthorID,
			BooksRewritten:   booksRewritten,
			DeletedBy:        actorID,
			DeletedAt:        s.now().UTC(),
		})
	}
	return nil
}
