package usecase

import (
	"context"
	"testing"
	"time"
)

func TestPurgeExpiredTokensUsesCurrentTime(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	var gotNow time.Time
	users := &fakeUserRepo{
		PurgeExpiredTokensFn: func(_ context.Context, at time.Time) (int64, error) {
			gotNow = at
			return 5, nil
		},
	}
	svc := NewMaintenanceService(users).WithClock(fixedClock(now))

	purged, err := svc.PurgeExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 5 {
		t.Errorf("purged = %d, want 5", purged)
	}
	if !gotNow.Equal(now) {
		t.Errorf("cutoff = %v, want %v", gotNow, now)
	}
}

func TestPurgeStaleUnverifiedUsesWeekOldCutoff(t *testing.T) {
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	users := &fakeUserRepo{
		PurgeStaleUnverifiedFn: func(_ context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 2, nil
		},
	}
	svc := NewMaintenanceService(users).WithClock(fixedClock(now))

	purged, err := svc.PurgeStaleUnverified(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}
	if want := now.Add(-7 * 24 * time.Hour); !gotCutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", gotCutoff, want)
	}
}
