package port

import (
	"context"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// FilterAll is the sentinel meaning "do not filter on this facet".
const FilterAll = "All"

// SearchFilters carries the optional facets of a search request. A zero or
// FilterAll value disables the facet.
type SearchFilters struct {
	Format             string
	MinRating          int
	ReadStatus         string
	AvailabilityStatus string
	IsFavorite         string
	StartDate          *time.Time
	EndDate            *time.Time
}

// SearchQuery is a validated search request, consumed by exactly one
// repository call and discarded after the response is sent.
type SearchQuery struct {
	Term      string
	Page      Page
	SortBy    string
	SortOrder string
	Filters   SearchFilters
	// UserID scopes bookshelf searches to the requesting user's shelf.
	UserID string
}

// Descending reports whether the sort direction is descending.
func (q SearchQuery) Descending() bool {
	return q.SortOrder == "desc"
}

// SearchRepository runs the read-only search pipelines. Text matches are
// case-insensitive substring matches; joined fields sort after the join.
type SearchRepository interface {
	SearchBooks(ctx context.Context, q SearchQuery) ([]domain.Book, PageInfo, error)
	SearchAuthors(ctx context.Context, q SearchQuery) ([]domain.Author, PageInfo, error)
	SearchUsers(ctx context.Context, q SearchQuery) ([]domain.User, PageInfo, error)
	SearchBookshelf(ctx context.Context, q SearchQuery) ([]domain.BookshelfItem, PageInfo, error)
}
