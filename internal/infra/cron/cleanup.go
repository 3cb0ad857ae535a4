package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// Scheduler runs periodic maintenance jobs: purging expired single-use
// tokens and removing stale unverified accounts.
type Scheduler struct {
	runner      *cron.Cron
	maintenance *usecase.MaintenanceService
	logger      *zap.Logger
}

func NewScheduler(maintenance *usecase.MaintenanceService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:      cron.New(),
		maintenance: maintenance,
		logger:      logger,
	}
}

// Start registers the cleanup job on the given schedule and starts the
// scheduler in the background.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.runner.AddFunc(schedule, s.runCleanup); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}

	s.runner.Start()
	s.logger.Info("cleanup job scheduled", zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := s.maintenance.PurgeExpiredTokens(ctx)
	if err != nil {
		s.logger.Error("expired token purge failed", zap.Error(err))
	} else {
		s.logger.Info("expired token purge completed", zap.Int64("users_updated", purged))
	}

	removed, err := s.maintenance.PurgeStaleUnverified(ctx)
	if err != nil {
		s.logger.Error("stale unverified purge failed", zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("stale unverified accounts removed", zap.Int64("count", removed))
	}
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
	s.logger.Info("cleanup scheduler stopped")
}
