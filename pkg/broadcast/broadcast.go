package broadcast

import "context"

// Message wraps data of type T for type-safe broadcasting.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel delivering broadcast messages in
	// publish order. The channel is closed when the subscriber closes.
	Receive() <-chan Message[T]

	// Close unsubscribes and closes the receive channel. Idempotent.
	Close() error
}

// Broadcaster sends messages to all current subscribers.
type Broadcaster[T any] interface {
	// Subscribe registers a new subscriber. The subscription is removed
	// automatically when ctx is cancelled.
	Subscribe(ctx context.Context) Subscriber[T]

	// Publish delivers msg to every active subscriber without blocking;
	// subscribers with a full buffer are dropped.
	Publish(ctx context.Context, msg Message[T]) error

	// Close shuts down the broadcaster and all subscribers.
	Close() error
}
