package channels

import (
	"context"

	"github.com/mentorhub/pulse/pkg/notifications"
)

// Recipient holds the contact details a delivery needs. The directory
// resolves it per user; adapters pick the field for their transport.
type Recipient struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	PushToken   string `json:"push_token,omitempty"`
}

// Directory resolves a user id to their contact details. It is
// implemented by whatever owns the user records; a failed lookup should
// return ErrRecipientNotFound.
type Directory interface {
	Recipient(ctx context.Context, userID string) (Recipient, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(ctx context.Context, userID string) (Recipient, error)

func (f DirectoryFunc) Recipient(ctx context.Context, userID string) (Recipient, error) {
	return f(ctx, userID)
}

// Adapter delivers a notification over a single transport. Deliver
// returning nil means the provider accepted the message; errors are
// retried by the queue until the channel's attempts are exhausted.
type Adapter interface {
	Channel() notifications.Channel
	Deliver(ctx context.Context, notif notifications.Notification, rcpt Recipient) error
}
