package port

import (
	"context"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// BookshelfRepository persists per-user bookshelf items.
type BookshelfRepository interface {
	Create(ctx context.Context, item domain.BookshelfItem) error
	GetByID(ctx context.Context, id string) (*domain.BookshelfItem, error)
	GetByUserAndBook(ctx context.Context, userID, bookID string) (*domain.BookshelfItem, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.BookshelfItem, int, error)
	Update(ctx context.Context, item domain.BookshelfItem) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteByBook(ctx context.Context, bookID string) (int64, error)

	// ListDueSoon returns the user's items with a due date before the cutoff,
	// soonest first.
	ListDueSoon(ctx context.Context, userID string, before time.Time, limit int) ([]domain.BookshelfItem, error)
	// Stats computes the reading dashboard counters; since bounds the
	// "last month" style counters.
	Stats(ctx context.Context, userID string, since time.Time) (*domain.ReadingStats, error)
}
