package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mentorhub/pulse/pkg/logger"
)

// Sweep periodically re-dispatches failed events below the retry ceiling
// and dead-letters the ones that exhausted it. Authenticity is not
// re-verified: a stored event was already trusted at ingest time.
type Sweep struct {
	store    Store
	registry *Registry
	interval time.Duration
	maxRetry int8
	log      *slog.Logger
}

// SweepOption configures a Sweep.
type SweepOption func(*Sweep)

// WithSweepLogger sets the logger for the Sweep.
func WithSweepLogger(log *slog.Logger) SweepOption {
	return func(s *Sweep) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSweep creates the failed-event retry sweep.
func NewSweep(cfg Config, store Store, registry *Registry, opts ...SweepOption) (*Sweep, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 2 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	s := &Sweep{
		store:    store,
		registry: registry,
		interval: cfg.SweepInterval,
		maxRetry: cfg.MaxRetries,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs the sweep loop until ctx is cancelled. One pass runs
// immediately on start.
func (s *Sweep) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("event retry sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}

// Run executes a single sweep pass. Exposed so tests and operator
// tooling can trigger a pass without the ticker.
func (s *Sweep) Run(ctx context.Context) {
	failed, err := s.store.ListFailed(ctx, s.maxRetry, 100)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list retryable events", logger.Error(err))
		return
	}

	for _, evt := range failed {
		s.retry(ctx, evt)
	}
}

func (s *Sweep) retry(ctx context.Context, evt Event) {
	handler, ok := s.registry.Resolve(evt.Type)
	if !ok {
		// A handler can disappear only through a code change; park the
		// event instead of retrying forever.
		s.deadLetter(ctx, evt)
		return
	}

	s.log.InfoContext(ctx, "retrying failed event",
		logger.ExternalID(evt.ExternalID),
		logger.EventType(string(evt.Type)),
		logger.RetryCount(int(evt.RetryCount)))

	err := handler.Handle(ctx, evt)
	switch {
	case err == nil:
		if err := s.store.MarkProcessed(ctx, evt.ExternalID); err != nil {
			s.log.ErrorContext(ctx, "failed to mark event processed", logger.ExternalID(evt.ExternalID), logger.Error(err))
		}
	case errors.Is(err, ErrSkipEvent):
		if err := s.store.MarkSkipped(ctx, evt.ExternalID, err.Error()); err != nil {
			s.log.ErrorContext(ctx, "failed to mark event skipped", logger.ExternalID(evt.ExternalID), logger.Error(err))
		}
	default:
		if markErr := s.store.MarkFailed(ctx, evt.ExternalID, err.Error()); markErr != nil {
			s.log.ErrorContext(ctx, "failed to mark event failed", logger.ExternalID(evt.ExternalID), logger.Error(markErr))
			return
		}
		// MarkFailed incremented the count; check against the ceiling.
		if evt.RetryCount+1 >= s.maxRetry {
			s.deadLetter(ctx, evt)
		}
	}
}

func (s *Sweep) deadLetter(ctx context.Context, evt Event) {
	if err := s.store.MarkDeadLetter(ctx, evt.ExternalID); err != nil {
		s.log.ErrorContext(ctx, "failed to dead-letter event",
			logger.ExternalID(evt.ExternalID),
			logger.Error(err))
		return
	}
	s.log.WarnContext(ctx, "event moved to dead letter",
		logger.ExternalID(evt.ExternalID),
		logger.EventType(string(evt.Type)),
		logger.RetryCount(int(evt.RetryCount)))
}
