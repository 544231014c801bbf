package events_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/events"
)

func failedEvent(t *testing.T, store events.Store, externalID string, retries int) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newStoredEvent(externalID, time.Now().UTC())))
	for range retries {
		require.NoError(t, store.MarkFailed(ctx, externalID, "boom"))
	}
}

func TestSweep_Run(t *testing.T) {
	t.Parallel()

	t.Run("successful retry marks processed", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := events.NewMemoryStore()
		failedEvent(t, store, "evt_1", 1)

		registry := events.NewRegistry()
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return nil
		}))

		sweep, err := events.NewSweep(events.Config{MaxRetries: 3}, store, registry)
		require.NoError(t, err)
		sweep.Run(ctx)

		stored, err := store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusProcessed, stored.Status)
	})

	t.Run("failure below ceiling stays failed", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := events.NewMemoryStore()
		failedEvent(t, store, "evt_1", 1)

		registry := events.NewRegistry()
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return errors.New("still down")
		}))

		sweep, err := events.NewSweep(events.Config{MaxRetries: 3}, store, registry)
		require.NoError(t, err)
		sweep.Run(ctx)

		stored, err := store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusFailed, stored.Status)
		assert.Equal(t, int8(2), stored.RetryCount)
	})

	t.Run("exhausted retries move to dead letter", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := events.NewMemoryStore()
		failedEvent(t, store, "evt_1", 2)

		registry := events.NewRegistry()
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return errors.New("still down")
		}))

		sweep, err := events.NewSweep(events.Config{MaxRetries: 3}, store, registry)
		require.NoError(t, err)
		sweep.Run(ctx)

		stored, err := store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusDeadLetter, stored.Status)

		// Dead-lettered events are out of the sweep's reach.
		sweep.Run(ctx)
		stored, err = store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusDeadLetter, stored.Status)
	})

	t.Run("skip during retry marks skipped", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := events.NewMemoryStore()
		failedEvent(t, store, "evt_1", 1)

		registry := events.NewRegistry()
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return events.ErrSkipEvent
		}))

		sweep, err := events.NewSweep(events.Config{MaxRetries: 3}, store, registry)
		require.NoError(t, err)
		sweep.Run(ctx)

		stored, err := store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusSkipped, stored.Status)
	})

	t.Run("missing handler dead-letters", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := events.NewMemoryStore()
		failedEvent(t, store, "evt_1", 1)

		sweep, err := events.NewSweep(events.Config{MaxRetries: 3}, store, events.NewRegistry())
		require.NoError(t, err)
		sweep.Run(ctx)

		stored, err := store.Get(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusDeadLetter, stored.Status)
	})
}

func TestSweep_Start(t *testing.T) {
	t.Parallel()

	store := events.NewMemoryStore()
	failedEvent(t, store, "evt_1", 1)

	var handled atomic.Int32
	registry := events.NewRegistry()
	registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
		handled.Add(1)
		return nil
	}))

	sweep, err := events.NewSweep(events.Config{MaxRetries: 3, SweepInterval: time.Hour}, store, registry)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweep.Start(ctx)
	}()

	// The first pass runs immediately; the hour-long ticker never fires.
	assert.Eventually(t, func() bool {
		return handled.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancellation")
	}
}
