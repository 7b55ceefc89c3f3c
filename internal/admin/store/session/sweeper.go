package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredDeleter is implemented by stores that need periodic purging.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper purges expired sessions on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	store    ExpiredDeleter
	schedule string
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(store ExpiredDeleter, schedule string, logger *slog.Logger) *Sweeper {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Sweeper{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		store:    store,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.logger.Info("scheduled admin session sweep", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Sweep runs one purge pass.
func (s *Sweeper) Sweep() {
	ctx := context.Background()
	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "admin session sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "purged expired admin sessions", "count", deleted)
	}
}

// Stop halts the scheduler; the returned context is done once a running
// sweep finishes.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
