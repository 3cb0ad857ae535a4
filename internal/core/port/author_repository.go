package port

import (
	"context"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// AuthorRepository persists authors.
type AuthorRepository interface {
	Create(ctx context.Context, author domain.Author) error
	GetByID(ctx context.Context, id string) (*domain.Author, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Author, error)
	List(ctx context.Context, page Page) ([]domain.Author, int, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Author, error)
	Update(ctx context.Context, author domain.Author) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
