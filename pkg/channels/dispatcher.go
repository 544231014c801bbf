package channels

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

// Dispatcher routes delivery attempts to the adapter registered for the
// task's channel. It satisfies the queue's deliverer contract.
type Dispatcher struct {
	adapters  map[notifications.Channel]Adapter
	directory Directory
	log       *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher creates a dispatcher over the given adapters. Each
// channel may be claimed by at most one adapter.
func NewDispatcher(directory Directory, adapters []Adapter, opts ...DispatcherOption) (*Dispatcher, error) {
	if directory == nil {
		return nil, ErrDirectoryNil
	}

	d := &Dispatcher{
		adapters:  make(map[notifications.Channel]Adapter, len(adapters)),
		directory: directory,
		log:       slog.Default(),
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if _, exists := d.adapters[a.Channel()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, a.Channel())
		}
		d.adapters[a.Channel()] = a
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Deliver resolves the recipient and hands the notification to the
// channel's adapter.
func (d *Dispatcher) Deliver(ctx context.Context, notif notifications.Notification, ch notifications.Channel) error {
	adapter, ok := d.adapters[ch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}

	rcpt, err := d.directory.Recipient(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", notif.UserID, err)
	}

	if err := adapter.Deliver(ctx, notif, rcpt); err != nil {
		d.log.WarnContext(ctx, "channel delivery failed",
			logger.NotificationID(notif.ID),
			logger.Channel(string(ch)),
			logger.Error(err))
		return err
	}
	return nil
}
