package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

func TestSearchRejectsUnknownKind(t *testing.T) {
	svc := NewSearchService(&fakeSearchRepo{})
	actor := abilityFor(t, domain.RoleUser, "u1")

	if _, err := svc.Search(context.Background(), actor, SearchRequest{Kind: "magazines"}, ""); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSearchRejectsRatingOutOfRange(t *testing.T) {
	svc := NewSearchService(&fakeSearchRepo{})
	actor := abilityFor(t, domain.RoleUser, "u1")

	_, err := svc.Search(context.Background(), actor, SearchRequest{Kind: SearchKindBooks, MinRating: 9}, "")
	if !errors.Is(err, ErrRatingOutOfRange) {
		t.Fatalf("expected ErrRatingOutOfRange, got %v", err)
	}
}

func TestSearchDropsUnknownSortField(t *testing.T) {
	var got port.SearchQuery
	repo := &fakeSearchRepo{
		SearchBooksFn: func(_ context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error) {
			got = q
			return nil, port.PageInfo{}, nil
		},
	}
	svc := NewSearchService(repo)
	actor := abilityFor(t, domain.RoleUser, "u1")

	req := SearchRequest{Kind: SearchKindBooks, Term: " dune ", SortBy: "password_hash", SortOrder: "DESC"}
	if _, err := svc.Search(context.Background(), actor, req, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.SortBy != "" {
		t.Errorf("sortBy = %q, want dropped", got.SortBy)
	}
	if got.SortOrder != "desc" {
		t.Errorf("sortOrder = %q, want normalized desc", got.SortOrder)
	}
	if got.Term != "dune" {
		t.Errorf("term = %q, want trimmed", got.Term)
	}
}

func TestSearchKeepsWhitelistedSortField(t *testing.T) {
	var got port.SearchQuery
	repo := &fakeSearchRepo{
		SearchBooksFn: func(_ context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error) {
			got = q
			return nil, port.PageInfo{}, nil
		},
	}
	svc := NewSearchService(repo)
	actor := abilityFor(t, domain.RoleUser, "u1")

	req := SearchRequest{Kind: SearchKindBooks, SortBy: "publish_year", SortOrder: "bogus"}
	if _, err := svc.Search(context.Background(), actor, req, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.SortBy != "publish_year" {
		t.Errorf("sortBy = %q", got.SortBy)
	}
	if got.SortOrder != "asc" {
		t.Errorf("sortOrder = %q, want asc fallback", got.SortOrder)
	}
}

func TestSearchCollapsesAllFacets(t *testing.T) {
	var got port.SearchQuery
	repo := &fakeSearchRepo{
		SearchBooksFn: func(_ context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error) {
			got = q
			return nil, port.PageInfo{}, nil
		},
	}
	svc := NewSearchService(repo)
	actor := abilityFor(t, domain.RoleUser, "u1")

	req := SearchRequest{
		Kind:               SearchKindBooks,
		Format:             port.FilterAll,
		AvailabilityStatus: "available",
		IsFavorite:         port.FilterAll,
	}
	if _, err := svc.Search(context.Background(), actor, req, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Filters.Format != "" {
		t.Errorf("format facet = %q, want disabled", got.Filters.Format)
	}
	if got.Filters.IsFavorite != "" {
		t.Errorf("favorite facet = %q, want disabled", got.Filters.IsFavorite)
	}
	if got.Filters.AvailabilityStatus != "available" {
		t.Errorf("availability facet = %q", got.Filters.AvailabilityStatus)
	}
}

func TestSearchBookshelfScopesToActor(t *testing.T) {
	var got port.SearchQuery
	repo := &fakeSearchRepo{
		SearchBookshelfFn: func(_ context.Context, q port.SearchQuery) ([]domain.BookshelfItem, port.PageInfo, error) {
			got = q
			return nil, port.PageInfo{}, nil
		},
	}
	svc := NewSearchService(repo)

	actor := abilityFor(t, domain.RoleUser, "u1")
	if _, err := svc.Search(context.Background(), actor, SearchRequest{Kind: SearchKindBookshelf}, ""); err != nil {
		t.Fatalf("own shelf search: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("userID = %q, want the actor", got.UserID)
	}

	_, err := svc.Search(context.Background(), actor, SearchRequest{Kind: SearchKindBookshelf}, "u2")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for foreign shelf, got %v", err)
	}

	admin := abilityFor(t, domain.RoleAdmin, "a1")
	if _, err := svc.Search(context.Background(), admin, SearchRequest{Kind: SearchKindBookshelf}, "u2"); err != nil {
		t.Fatalf("admin shelf search: %v", err)
	}
	if got.UserID != "u2" {
		t.Errorf("userID = %q, want the targeted user", got.UserID)
	}
}

func TestSearchNormalizesPaging(t *testing.T) {
	var got port.SearchQuery
	repo := &fakeSearchRepo{
		SearchAuthorsFn: func(_ context.Context, q port.SearchQuery) ([]domain.Author, port.PageInfo, error) {
			got = q
			return nil, port.PageInfo{}, nil
		},
	}
	svc := NewSearchService(repo)
	actor := abilityFor(t, domain.RoleUser, "u1")

	if _, err := svc.Search(context.Background(), actor, SearchRequest{Kind: SearchKindAuthors, Page: -3, Limit: 0}, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Page.Number != 1 || got.Page.Size != 10 {
		t.Errorf("page = %+v, want normalized defaults", got.Page)
	}
}
