package events

import "context"

// Store is the durable idempotency record keyed by external event id.
// All mutations are single-row keyed writes; Insert is the serialization
// point for concurrent deliveries of the same id.
type Store interface {
	// Insert persists a newly received event. Returns ErrDuplicateEvent
	// when an event with the same external id already exists.
	Insert(ctx context.Context, event *Event) error

	// Get returns the event for an external id, or ErrEventNotFound.
	Get(ctx context.Context, externalID string) (*Event, error)

	// MarkProcessed records successful handler completion.
	MarkProcessed(ctx context.Context, externalID string) error

	// MarkSkipped records a permanent application-level rejection.
	// Skipped events are never retried.
	MarkSkipped(ctx context.Context, externalID, reason string) error

	// MarkFailed records a handler failure, incrementing the retry count
	// and storing the error for diagnostics.
	MarkFailed(ctx context.Context, externalID, errMsg string) error

	// MarkDeadLetter parks an event that exhausted its retries.
	MarkDeadLetter(ctx context.Context, externalID string) error

	// ListFailed returns failed events with a retry count below the
	// ceiling, oldest first, up to limit.
	ListFailed(ctx context.Context, belowRetries int8, limit int) ([]Event, error)

	// ListDeadLetters returns dead-lettered events for operator review.
	ListDeadLetters(ctx context.Context, limit int) ([]Event, error)

	// Requeue resets a dead-lettered event back to failed with a zero
	// retry count so the sweep picks it up again. Operator action after
	// a handler fix ships.
	Requeue(ctx context.Context, externalID string) error
}
