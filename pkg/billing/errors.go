package billing

import "errors"

var (
	// ErrMalformedPayload is returned when an event data section cannot
	// be decoded into its normalized form.
	ErrMalformedPayload = errors.New("billing: malformed event payload")

	// ErrPaymentNotFound is returned when a payment id does not exist.
	ErrPaymentNotFound = errors.New("billing: payment not found")

	// ErrSubscriptionNotFound is returned when a subscription id does
	// not exist.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")

	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("billing: store cannot be nil")

	// ErrInvalidProviderSignature is returned when a provider webhook
	// fails verification.
	ErrInvalidProviderSignature = errors.New("billing: invalid provider signature")

	// ErrUnsupportedProviderEvent is returned for provider events the
	// pipeline has no mapping for.
	ErrUnsupportedProviderEvent = errors.New("billing: unsupported provider event")
)
