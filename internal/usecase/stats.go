package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// statsWindow bounds the "last month" counters.
const statsWindow = 30 * 24 * time.Hour

// StatsService computes the per-user reading dashboard.
type StatsService struct {
	shelf   port.BookshelfRepository
	books   port.BookRepository
	authors port.AuthorRepository
	now     func() time.Time
}

// NewStatsService constructs StatsService.
func NewStatsService(shelf port.BookshelfRepository, books port.BookRepository, authors port.AuthorRepository) *StatsService {
	return &StatsService{shelf: shelf, books: books, authors: authors, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	if now != nil {
		s.now = now
	}
	return s
}

// Overview returns the reading dashboard for one user. Catalogue totals are
// global; the shelf counters are scoped to the user.
func (s *StatsService) Overview(ctx context.Context, actor *ability.Ability, userID string) (*domain.ReadingStats, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectStats, userID) {
		return nil, ErrPermissionDenied
	}

	since := s.now().UTC().Add(-statsWindow)
	stats, err := s.shelf.Stats(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("compute shelf stats: %w", err)
	}

	if stats.TotalBooks, err = s.books.Count(ctx); err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	if stats.TotalAuthors, err = s.authors.Count(ctx); err != nil {
		return nil, fmt.Errorf("count authors: %w", err)
	}
	return stats, nil
}
