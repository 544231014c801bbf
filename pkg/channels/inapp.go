package channels

import (
	"context"

	"github.com/mentorhub/pulse/pkg/notifications"
)

// InAppAdapter accepts in-app deliveries without side effects. The
// notification is already persisted and streamed to live subscribers
// before the queue runs; the attempt only records that the channel was
// served.
type InAppAdapter struct{}

// NewInAppAdapter creates the in-app adapter.
func NewInAppAdapter() *InAppAdapter {
	return &InAppAdapter{}
}

func (a *InAppAdapter) Channel() notifications.Channel {
	return notifications.ChannelInApp
}

func (a *InAppAdapter) Deliver(ctx context.Context, notif notifications.Notification, rcpt Recipient) error {
	return nil
}
