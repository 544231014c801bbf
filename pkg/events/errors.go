package events

import "errors"

var (
	// ErrEmptyPayload is returned for requests without a body.
	ErrEmptyPayload = errors.New("events: empty payload")

	// ErrPayloadTooLarge is returned when the payload exceeds the size ceiling.
	ErrPayloadTooLarge = errors.New("events: payload exceeds size limit")

	// ErrInvalidSignature is returned when authenticity verification fails.
	// No state is mutated in that case.
	ErrInvalidSignature = errors.New("events: invalid payload signature")

	// ErrMalformedPayload is returned when the payload is not a valid
	// event envelope.
	ErrMalformedPayload = errors.New("events: malformed event envelope")

	// ErrDuplicateEvent is returned by Store.Insert when an event with the
	// same external id already exists.
	ErrDuplicateEvent = errors.New("events: duplicate external event id")

	// ErrEventNotFound is returned when no event exists for an external id.
	ErrEventNotFound = errors.New("events: event not found")

	// ErrSkipEvent signals a permanent application-level rejection from a
	// handler (e.g. referenced entity missing). The event is marked
	// processed-with-warning and never retried.
	ErrSkipEvent = errors.New("events: event skipped by handler")

	// ErrNotDeadLettered is returned by Store.Requeue when the target
	// event is not in the dead-letter state.
	ErrNotDeadLettered = errors.New("events: event is not dead-lettered")

	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("events: store cannot be nil")
)
