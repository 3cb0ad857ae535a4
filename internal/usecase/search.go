package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// SearchKind selects which search pipeline a request runs.
type SearchKind string

const (
	SearchKindBooks     SearchKind = "books"
	SearchKindAuthors   SearchKind = "authors"
	SearchKindUsers     SearchKind = "users"
	SearchKindBookshelf SearchKind = "bookshelf"
)

// sortFields lists the accepted sortBy values per kind. Anything else falls
// back to the kind's default ordering.
var sortFields = map[SearchKind]map[string]bool{
	SearchKindBooks: {
		"title": true, "publish_year": true, "page_count": true,
		"created_at": true, "updated_at": true,
	},
	SearchKindAuthors: {
		"last_name": true, "first_name": true, "birth_date": true,
		"created_at": true,
	},
	SearchKindUsers: {
		"username": true, "email": true, "created_at": true,
	},
	SearchKindBookshelf: {
		"title": true, "rating": true, "read_status": true,
		"start_read_date": true, "end_read_date": true, "due_date": true,
		"created_at": true, "updated_at": true,
	},
}

// SearchRequest is the raw, unvalidated request from the HTTP layer.
type SearchRequest struct {
	Kind      SearchKind
	Term      string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string

	Format             string
	MinRating          int
	ReadStatus         string
	AvailabilityStatus string
	IsFavorite         string
	StartDate          *time.Time
	EndDate            *time.Time
}

// SearchResult carries one page of results for any kind; exactly one of the
// item slices is populated.
type SearchResult struct {
	Books   []domain.Book
	Authors []domain.Author
	Users   []domain.User
	Shelf   []domain.BookshelfItem
	Page    port.PageInfo
	Kind    SearchKind
}

// SearchService validates search requests and dispatches them to the
// read-only search pipelines.
type SearchService struct {
	repo port.SearchRepository
}

// NewSearchService constructs SearchService.
func NewSearchService(repo port.SearchRepository) *SearchService {
	return &SearchService{repo: repo}
}

// Search runs one search. Bookshelf searches are scoped to the actor's own
// shelf unless the actor holds an unconditional bookshelf read grant and
// names another user.
func (s *SearchService) Search(ctx context.Context, actor *ability.Ability, req SearchRequest, targetUserID string) (*SearchResult, error) {
	query, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Kind: req.Kind}
	switch req.Kind {
	case SearchKindBooks:
		result.Books, result.Page, err = s.repo.SearchBooks(ctx, query)
	case SearchKindAuthors:
		result.Authors, result.Page, err = s.repo.SearchAuthors(ctx, query)
	case SearchKindUsers:
		result.Users, result.Page, err = s.repo.SearchUsers(ctx, query)
	case SearchKindBookshelf:
		userID := strings.TrimSpace(targetUserID)
		if userID == "" {
			userID = actor.Principal().UserID
		}
		if !actor.CanOwn(ability.ActionRead, ability.SubjectBookshelf, userID) {
			return nil, ErrPermissionDenied
		}
		query.UserID = userID
		result.Shelf, result.Page, err = s.repo.SearchBookshelf(ctx, query)
	default:
		return nil, fmt.Errorf("unknown search kind %q", req.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Kind, err)
	}
	return result, nil
}

func (s *SearchService) buildQuery(req SearchRequest) (port.SearchQuery, error) {
	fields, ok := sortFields[req.Kind]
	if !ok {
		return port.SearchQuery{}, fmt.Errorf("unknown search kind %q", req.Kind)
	}

	sortBy := strings.TrimSpace(req.SortBy)
	if !fields[sortBy] {
		sortBy = ""
	}
	sortOrder := strings.ToLower(strings.TrimSpace(req.SortOrder))
	if sortOrder != "desc" {
		sortOrder = "asc"
	}

	if req.MinRating < 0 || req.MinRating > maxRating {
		return port.SearchQuery{}, ErrRatingOutOfRange
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return port.SearchQuery{}, fmt.Errorf("end date precedes start date")
	}

	return port.SearchQuery{
		Term:      strings.TrimSpace(req.Term),
		Page:      port.Page{Number: req.Page, Size: req.Limit}.Normalize(),
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Filters: port.SearchFilters{
			Format:             normalizeFacet(req.Format),
			MinRating:          req.MinRating,
			ReadStatus:         normalizeFacet(req.ReadStatus),
			AvailabilityStatus: normalizeFacet(req.AvailabilityStatus),
			IsFavorite:         normalizeFacet(req.IsFavorite),
			StartDate:          req.StartDate,
			EndDate:            req.EndDate,
		},
	}, nil
}

// normalizeFacet collapses the "All" sentinel to the zero value so the
// repositories only ever see active facets.
func normalizeFacet(value string) string {
	value = strings.TrimSpace(value)
	if value == port.FilterAll {
		return ""
	}
	return value
}
