package port

import (
	"context"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// BookRepository persists catalogue books and the book↔author link rows.
type BookRepository interface {
	Create(ctx context.Context, book domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Book, error)
	List(ctx context.Context, page Page) ([]domain.Book, int, error)
	ListByAuthor(ctx context.Context, authorID string, page Page) ([]domain.Book, int, error)
	Update(ctx context.Context, book domain.Book) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// LinkAuthors inserts book_authors rows, ignoring duplicates.
	LinkAuthors(ctx context.Context, bookID string, authorIDs []string) error
	// UnlinkAllAuthors removes every author link for the book.
	UnlinkAllAuthors(ctx context.Context, bookID string) error
	// ReplaceAuthor rewrites links pointing at authorID to fallbackAuthorID
	// across all books, dropping the link when fallbackAuthorID is empty.
	// Returns the number of books whose author list changed.
	ReplaceAuthor(ctx context.Context, authorID, fallbackAuthorID string) (int, error)
}
