package webhook

import "errors"

var (
	// ErrMissingSecret is returned when a signing secret is empty.
	ErrMissingSecret = errors.New("webhook: signing secret is required")

	// ErrEmptyPayload is returned when signing or verifying an empty payload.
	ErrEmptyPayload = errors.New("webhook: payload cannot be empty")

	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("webhook: signature header is missing")

	// ErrSignatureMismatch is returned when the computed digest does not
	// match the presented one.
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")

	// ErrSignatureExpired is returned when the signature timestamp falls
	// outside the accepted window.
	ErrSignatureExpired = errors.New("webhook: signature timestamp outside accepted window")
)
