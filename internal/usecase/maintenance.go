package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// staleUnverifiedAge is how long an unverified account may linger before the
// scheduled purge removes it.
const staleUnverifiedAge = 7 * 24 * time.Hour

// MaintenanceService hosts the scheduled cleanup jobs.
type MaintenanceService struct {
	users port.UserRepository
	now   func() time.Time
}

// NewMaintenanceService constructs MaintenanceService.
func NewMaintenanceService(users port.UserRepository) *MaintenanceService {
	return &MaintenanceService{users: users, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *MaintenanceService) WithClock(now func() time.Time) *MaintenanceService {
	if now != nil {
		s.now = now
	}
	return s
}

// PurgeExpiredTokens clears verification, reset, and email-change tokens
// whose validity window passed.
func (s *MaintenanceService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	purged, err := s.users.PurgeExpiredTokens(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return purged, nil
}

// PurgeStaleUnverified removes accounts that never confirmed their email.
func (s *MaintenanceService) PurgeStaleUnverified(ctx context.Context) (int64, error) {
	purged, err := s.users.PurgeStaleUnverified(ctx, s.now().UTC().Add(-staleUnverifiedAge))
	if err != nil {
		return 0, fmt.Errorf("purge stale unverified accounts: %w", err)
	}
	return purged, nil
}
