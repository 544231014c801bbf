package notifications

import (
	"context"
	"log/slog"

	"github.com/mentorhub/pulse/pkg/broadcast"
	"github.com/mentorhub/pulse/pkg/cache"
	"github.com/mentorhub/pulse/pkg/logger"
)

// FanoutDeliverer pushes notifications to per-user broadcasters for
// live transports (SSE, WebSocket). Each user gets an independent
// broadcaster so one user's slow consumer cannot stall another's feed;
// an LRU cap bounds memory for idle users.
type FanoutDeliverer struct {
	broadcasters *cache.LRU[string, broadcast.Broadcaster[Notification]]
	bufferSize   int
	maxUsers     int
	log          *slog.Logger
}

// FanoutOption configures a FanoutDeliverer.
type FanoutOption func(*FanoutDeliverer)

// WithFanoutLogger sets the logger for the FanoutDeliverer.
func WithFanoutLogger(log *slog.Logger) FanoutOption {
	return func(d *FanoutDeliverer) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMaxUsers caps the number of live per-user broadcasters. The least
// recently used broadcaster is closed on overflow. Default 10000.
func WithMaxUsers(limit int) FanoutOption {
	return func(d *FanoutDeliverer) {
		if limit > 0 {
			d.maxUsers = limit
		}
	}
}

// NewFanoutDeliverer creates the live fan-out layer. bufferSize is the
// per-subscriber channel depth.
func NewFanoutDeliverer(bufferSize int, opts ...FanoutOption) *FanoutDeliverer {
	d := &FanoutDeliverer{
		bufferSize: bufferSize,
		maxUsers:   10000,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.broadcasters = cache.NewLRU(d.maxUsers,
		cache.WithOnEvict(func(userID string, b broadcast.Broadcaster[Notification]) {
			if err := b.Close(); err != nil {
				d.log.Error("failed to close evicted broadcaster",
					logger.UserID(userID),
					logger.Error(err))
			}
		}))
	return d
}

// Deliver publishes the notification to the owner's broadcaster.
// Publishing with no subscribers is a no-op.
func (d *FanoutDeliverer) Deliver(ctx context.Context, notif Notification) error {
	return d.broadcasterFor(notif.UserID).Publish(ctx, broadcast.Message[Notification]{Data: notif})
}

// Subscribe returns a live feed of the user's notifications. The
// subscription ends when ctx is cancelled or the subscriber is closed.
func (d *FanoutDeliverer) Subscribe(ctx context.Context, userID string) broadcast.Subscriber[Notification] {
	return d.broadcasterFor(userID).Subscribe(ctx)
}

func (d *FanoutDeliverer) broadcasterFor(userID string) broadcast.Broadcaster[Notification] {
	return d.broadcasters.GetOrSet(userID, func() broadcast.Broadcaster[Notification] {
		return broadcast.NewMemoryBroadcaster[Notification](d.bufferSize)
	})
}

// Close shuts down every user broadcaster.
func (d *FanoutDeliverer) Close() error {
	d.broadcasters.Purge()
	return nil
}
