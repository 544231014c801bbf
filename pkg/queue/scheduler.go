package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

// Scheduler periodically releases due scheduled notifications into the
// delivery queue.
type Scheduler struct {
	engine   *notifications.Engine
	interval time.Duration
	log      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger for the Scheduler.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScheduler creates the scheduled-notification sweep.
func NewScheduler(cfg Config, engine *notifications.Engine, opts ...SchedulerOption) (*Scheduler, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = time.Minute
	}

	s := &Scheduler{
		engine:   engine,
		interval: cfg.ScheduleInterval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs the sweep loop until ctx is cancelled. One pass runs
// immediately on start.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("notification scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}

// Run executes a single sweep pass.
func (s *Scheduler) Run(ctx context.Context) {
	released, err := s.engine.ReleaseScheduled(ctx, time.Now().UTC())
	if err != nil {
		s.log.ErrorContext(ctx, "failed to release scheduled notifications", logger.Error(err))
		return
	}
	if released > 0 {
		s.log.InfoContext(ctx, "released scheduled notifications", slog.Int("count", released))
	}
}
