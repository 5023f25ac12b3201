package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Rollup aggregates one finished day of readings into daily stats.
type Rollup interface {
	RollupDaily(ctx context.Context, homeID string, dayStart, dayEnd int64, day string) error
}

// Scheduler runs the nightly daily-stats rollup.
type Scheduler struct {
	cron   *cron.Cron
	rollup Rollup
	homeID string
	logger *zap.Logger
}

// NewScheduler creates the rollup scheduler for one home.
func NewScheduler(rollup Rollup, homeID string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		rollup: rollup,
		homeID: homeID,
		logger: logger,
	}
}

// Start registers the nightly job and starts the cron loop. The rollup runs
// shortly after midnight for the day that just ended.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("10 0 * * *", func() {
		s.RollupDay(time.Now().AddDate(0, 0, -1))
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("rollup scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("rollup scheduler stopped")
}

// RollupDay aggregates the given calendar day (local time).
func (s *Scheduler) RollupDay(t time.Time) {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	day := dayStart.Format("2006-01-02")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.rollup.RollupDaily(ctx, s.homeID, dayStart.UnixMilli(), dayEnd.UnixMilli(), day); err != nil {
		s.logger.Error("daily rollup failed", zap.String("day", day), zap.Error(err))
		return
	}
	s.logger.Info("daily rollup complete", zap.String("day", day))
}
