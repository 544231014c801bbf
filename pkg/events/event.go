package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of provider events the pipeline understands.
type EventType string

const (
	EventTypePaymentSucceeded      EventType = "payment.succeeded"
	EventTypePaymentFailed         EventType = "payment.failed"
	EventTypePaymentRefunded       EventType = "payment.refunded"
	EventTypeSubscriptionCreated   EventType = "subscription.created"
	EventTypeSubscriptionUpdated   EventType = "subscription.updated"
	EventTypeSubscriptionCancelled EventType = "subscription.cancelled"
	EventTypeSubscriptionPastDue   EventType = "subscription.past_due"

	// EventTypeUnknown marks event types outside the closed set. Unknown
	// events are accepted and recorded so the provider stops retrying,
	// but no handler runs for them.
	EventTypeUnknown EventType = "unknown"
)

// knownTypes enumerates every dispatchable event type.
var knownTypes = map[EventType]struct{}{
	EventTypePaymentSucceeded:      {},
	EventTypePaymentFailed:         {},
	EventTypePaymentRefunded:       {},
	EventTypeSubscriptionCreated:   {},
	EventTypeSubscriptionUpdated:   {},
	EventTypeSubscriptionCancelled: {},
	EventTypeSubscriptionPastDue:   {},
}

// Normalize maps a raw provider event name onto the closed enum,
// collapsing anything unrecognized to EventTypeUnknown.
func Normalize(raw string) EventType {
	t := EventType(raw)
	if _, ok := knownTypes[t]; ok {
		return t
	}
	return EventTypeUnknown
}

// Status is the processing state of a stored event.
type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusProcessed   Status = "processed"
	// StatusSkipped records a permanent application-level rejection:
	// processed so the sweep leaves it alone, flagged for diagnostics.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusDeadLetter is the terminal state for events that exhausted the
	// retry ceiling; they require operator intervention (see Store.Requeue).
	StatusDeadLetter Status = "dead_letter"
)

// Event is one externally-originated occurrence. Events are created on
// receipt, mutated only in status/retry fields, and never deleted: they
// are the audit trail of everything the provider told us.
type Event struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Type       EventType `json:"type"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	Status     Status    `json:"status"`
	RetryCount int8      `json:"retry_count"`
	LastError  *string   `json:"last_error,omitempty"`
}

// Envelope is the outer JSON structure of a provider payload.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ParseEnvelope decodes and validates the payload envelope.
func ParseEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, ErrMalformedPayload
	}
	if env.EventID == "" || env.EventType == "" {
		return Envelope{}, ErrMalformedPayload
	}
	return env, nil
}
