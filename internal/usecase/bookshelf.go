package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

const (
	minRating = 0
	maxRating = 5
)

var (
	// ErrShelfItemNotFound indicates the referenced bookshelf item does not exist.
	ErrShelfItemNotFound = errors.New("bookshelf item not found")
	// ErrAlreadyShelved indicates the user already has the book on their shelf.
	ErrAlreadyShelved = errors.New("book already on shelf")
	// ErrRatingOutOfRange indicates the rating falls outside 0..5.
	ErrRatingOutOfRange = errors.New("rating out of range")
)

// BookshelfService handles per-user bookshelf operations.
type BookshelfService struct {
	shelf port.BookshelfRepository
	books port.BookRepository
	now   func() time.Time
}

// NewBookshelfService constructs BookshelfService.
func NewBookshelfService(shelf port.BookshelfRepository, books port.BookRepository) *BookshelfService {
	return &BookshelfService{shelf: shelf, books: books, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *BookshelfService) WithClock(now func() time.Time) *BookshelfService {
	if now != nil {
		s.now = now
	}
	return s
}

// ShelfItemInput carries the writable bookshelf item fields.
type ShelfItemInput struct {
	Rating        int
	ReadStatus    domain.ReadStatus
	StartReadDate *time.Time
	EndReadDate   *time.Time
	IsFavorite    bool
	DueDate       *time.Time
}

func (in ShelfItemInput) validate() error {
	if in.Rating < minRating || in.Rating > maxRating {
		return ErrRatingOutOfRange
	}
	switch in.ReadStatus {
	case "", domain.ReadStatusToRead, domain.ReadStatusReading, domain.ReadStatusRead:
	default:
		return fmt.Errorf("unknown read status %q", in.ReadStatus)
	}
	if in.StartReadDate != nil && in.EndReadDate != nil && in.EndReadDate.Before(*in.StartReadDate) {
		return fmt.Errorf("end read date precedes start read date")
	}
	return nil
}

// AddToShelf puts a catalogue book on a user's shelf. Each (user, book) pair
// exists at most once.
func (s *BookshelfService) AddToShelf(ctx context.Context, actor *ability.Ability, userID, bookID string, input ShelfItemInput) (*domain.BookshelfItem, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionCreate, ability.SubjectBookshelf, userID) {
		return nil, ErrPermissionDenied
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lookup book: %w", err)
	}

	if existing, err := s.shelf.GetByUserAndBook(ctx, userID, bookID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check shelf: %w", err)
	} else if existing != nil {
		return nil, ErrAlreadyShelved
	}

	now := s.now().UTC()
	item := domain.BookshelfItem{
		ID:            uuid.NewString(),
		UserID:        userID,
		BookID:        bookID,
		Rating:        input.Rating,
		ReadStatus:    input.ReadStatus,
		StartReadDate: input.StartReadDate,
		EndReadDate:   input.EndReadDate,
		IsFavorite:    input.IsFavorite,
		DueDate:       input.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if item.ReadStatus == "" {
		item.ReadStatus = domain.ReadStatusToRead
	}

	if err := s.shelf.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyShelved
		}
		return nil, fmt.Errorf("create shelf item: %w", err)
	}
	return &item, nil
}

// GetItem loads one bookshelf item, enforcing ownership.
func (s *BookshelfService) GetItem(ctx context.Context, actor *ability.Ability, id string) (*domain.BookshelfItem, error) {
	item, err := s.shelf.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShelfItemNotFound
		}
		return nil, fmt.Errorf("lookup shelf item: %w", err)
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectBookshelf, item.UserID) {
		return nil, ErrPermissionDenied
	}
	return item, nil
}

// ListShelf returns a page of the user's shelf, enforcing ownership.
func (s *BookshelfService) ListShelf(ctx context.Context, actor *ability.Ability, userID string, page port.Page) ([]domain.BookshelfItem, port.PageInfo, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectBookshelf, userID) {
		return nil, port.PageInfo{}, ErrPermissionDenied
	}

	page = page.Normalize()
	items, total, err := s.shelf.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("list shelf: %w", err)
	}
	return items, port.NewPageInfo(page, total), nil
}

// UpdateItem applies changes to a bookshelf item, enforcing ownership.
func (s *BookshelfService) UpdateItem(ctx context.Context, actor *ability.Ability, id string, input ShelfItemInput) (*domain.BookshelfItem, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	item, err := s.shelf.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShelfItemNotFound
		}
		return nil, fmt.Errorf("lookup shelf item: %w", err)
	}
	if !actor.CanOwn(ability.ActionUpdate, ability.SubjectBookshelf, item.UserID) {
		return nil, ErrPermissionDenied
	}

	item.Rating = input.Rating
	if input.ReadStatus != "" {
		item.ReadStatus = input.ReadStatus
	}
	item.StartReadDate = input.StartReadDate
	item.EndReadDate = input.EndReadDate
	item.IsFavorite = input.IsFavorite
	item.DueDate = input.DueDate
	item.UpdatedAt = s.now().UTC()

	if err := s.shelf.Update(ctx, *item); err != nil {
		return nil, fmt.Errorf("update shelf item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes a bookshelf item, enforcing ownership.
func (s *BookshelfService) RemoveItem(ctx context.Context, actor *ability.Ability, id string) error {
	item, err := s.shelf.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrShelfItemNotFound
		}
		return fmt.Errorf("lookup shelf item: %w", err)
	}
	if !actor.CanOwn(ability.ActionDelete, ability.SubjectBookshelf, item.UserID) {
		return ErrPermissionDenied
	}

	if err := s.shelf.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete shelf item: %w", err)
	}
	return nil
}

// DueSoon lists the user's items whose due date falls within the window,
// soonest first.
func (s *BookshelfService) DueSoon(ctx context.Context, actor *ability.Ability, userID string, window time.Duration, limit int) ([]domain.BookshelfItem, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectBookshelf, userID) {
		return nil, ErrPermissionDenied
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	if limit <= 0 {
		limit = 20
	}

	items, err := s.shelf.ListDueSoon(ctx, userID, s.now().UTC().Add(window), limit)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}
	return items, nil
}
