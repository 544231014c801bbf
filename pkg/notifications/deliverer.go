package notifications

import (
	"context"
	"time"
)

// Deliverer pushes freshly visible notifications to live consumers.
// Persistence always happens first; delivery is best effort.
type Deliverer interface {
	Deliver(ctx context.Context, notif Notification) error
}

// TaskEnqueuer schedules per-channel delivery work. The queue package
// provides the real implementation; the indirection keeps the engine
// free of queue internals.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, notifID string, channel Channel, dueAt time.Time) error
}

// NoopDeliverer discards notifications. Useful when no live transport
// is attached.
type NoopDeliverer struct{}

func (NoopDeliverer) Deliver(ctx context.Context, notif Notification) error { return nil }
