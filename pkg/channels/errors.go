package channels

import "errors"

var (
	// ErrInvalidConfig is returned when an adapter is constructed with
	// missing or malformed settings.
	ErrInvalidConfig = errors.New("channels: invalid adapter config")

	// ErrUnknownChannel is returned when no registered adapter handles
	// the requested channel.
	ErrUnknownChannel = errors.New("channels: no adapter for channel")

	// ErrDuplicateAdapter is returned when two adapters claim the same
	// channel.
	ErrDuplicateAdapter = errors.New("channels: duplicate adapter for channel")

	// ErrDirectoryNil is returned when the dispatcher is created
	// without a recipient directory.
	ErrDirectoryNil = errors.New("channels: directory cannot be nil")

	// ErrRecipientNotFound is returned when the directory has no
	// contact details for the user.
	ErrRecipientNotFound = errors.New("channels: recipient not found")

	// ErrMissingContact is returned when the recipient exists but lacks
	// the contact detail the channel needs, like a phone number for
	// SMS.
	ErrMissingContact = errors.New("channels: recipient missing contact detail")

	// ErrDeliveryFailed is returned when the downstream provider
	// rejects or fails the delivery.
	ErrDeliveryFailed = errors.New("channels: delivery failed")
)
