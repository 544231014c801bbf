package notifications_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/broadcast"
	"github.com/mentorhub/pulse/pkg/notifications"
)

func collectNotifs(t *testing.T, sub broadcast.Subscriber[notifications.Notification], n int) []notifications.Notification {
	t.Helper()

	out := make([]notifications.Notification, 0, n)
	timeout := time.After(time.Second)
	for len(out) < n {
		select {
		case msg, ok := <-sub.Receive():
			require.True(t, ok, "subscription closed early")
			out = append(out, msg.Data)
		case <-timeout:
			t.Fatalf("timed out waiting for %d notifications, got %d", n, len(out))
		}
	}
	return out
}

func TestFanoutDeliverer(t *testing.T) {
	t.Parallel()

	t.Run("delivers in creation order", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16)
		defer fanout.Close()

		sub := fanout.Subscribe(context.Background(), "usr_1")
		defer sub.Close()

		for i := range 5 {
			err := fanout.Deliver(context.Background(), notifications.Notification{
				ID:     string(rune('a' + i)),
				UserID: "usr_1",
			})
			require.NoError(t, err)
		}

		got := collectNotifs(t, sub, 5)
		for i, n := range got {
			assert.Equal(t, string(rune('a'+i)), n.ID)
		}
	})

	t.Run("users are isolated", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16)
		defer fanout.Close()

		sub1 := fanout.Subscribe(context.Background(), "usr_1")
		defer sub1.Close()
		sub2 := fanout.Subscribe(context.Background(), "usr_2")
		defer sub2.Close()

		require.NoError(t, fanout.Deliver(context.Background(), notifications.Notification{ID: "n1", UserID: "usr_1"}))

		got := collectNotifs(t, sub1, 1)
		assert.Equal(t, "n1", got[0].ID)

		select {
		case msg := <-sub2.Receive():
			t.Fatalf("user 2 received foreign notification %s", msg.Data.ID)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("publish with no subscribers is a no-op", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16)
		defer fanout.Close()

		require.NoError(t, fanout.Deliver(context.Background(), notifications.Notification{ID: "n1", UserID: "usr_lonely"}))
	})

	t.Run("context cancel ends subscription", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16)
		defer fanout.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := fanout.Subscribe(ctx, "usr_1")
		cancel()

		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-sub.Receive():
				return !ok
			default:
				return false
			}
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("eviction does not block other users", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16, notifications.WithMaxUsers(1))
		defer fanout.Close()

		// usr_a holds a live subscription when usr_b's delivery
		// evicts its broadcaster.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		subA := fanout.Subscribe(ctx, "usr_a")

		delivered := make(chan error, 1)
		go func() {
			delivered <- fanout.Deliver(context.Background(), notifications.Notification{ID: "n1", UserID: "usr_b"})
		}()

		select {
		case err := <-delivered:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("delivery to an unrelated user blocked behind an evicted live subscription")
		}

		// The evicted user's subscription is torn down.
		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-subA.Receive():
				return !ok
			default:
				return false
			}
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("multiple subscribers both receive", func(t *testing.T) {
		t.Parallel()

		fanout := notifications.NewFanoutDeliverer(16)
		defer fanout.Close()

		subA := fanout.Subscribe(context.Background(), "usr_1")
		defer subA.Close()
		subB := fanout.Subscribe(context.Background(), "usr_1")
		defer subB.Close()

		require.NoError(t, fanout.Deliver(context.Background(), notifications.Notification{ID: "n1", UserID: "usr_1"}))

		assert.Equal(t, "n1", collectNotifs(t, subA, 1)[0].ID)
		assert.Equal(t, "n1", collectNotifs(t, subB, 1)[0].ID)
	})
}
