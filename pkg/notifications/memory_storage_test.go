package notifications_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/notifications"
)

func seedNotification(t *testing.T, s *notifications.MemoryStorage, id, userID string, mutate func(*notifications.Notification)) notifications.Notification {
	t.Helper()

	n := notifications.Notification{
		ID:        id,
		UserID:    userID,
		Category:  notifications.CategorySystemAlert,
		Priority:  notifications.PriorityMedium,
		Title:     "Title " + id,
		Body:      "Body " + id,
		Channels:  []notifications.Channel{notifications.ChannelInApp},
		Status:    notifications.StatusSent,
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&n)
	}
	require.NoError(t, s.Create(context.Background(), n))
	return n
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("newest first with pagination", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		base := time.Now().UTC()
		for i := range 5 {
			seedNotification(t, s, fmt.Sprintf("n%d", i), "usr_1", func(n *notifications.Notification) {
				n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			})
		}

		page, err := s.List(ctx, "usr_1", notifications.ListOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "n4", page[0].ID)
		assert.Equal(t, "n3", page[1].ID)

		page, err = s.List(ctx, "usr_1", notifications.ListOptions{Limit: 2, Offset: 4})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "n0", page[0].ID)
	})

	t.Run("filters compose", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		seedNotification(t, s, "n1", "usr_1", func(n *notifications.Notification) {
			n.Category = notifications.CategoryPaymentResult
			n.Title = "Payment received"
		})
		seedNotification(t, s, "n2", "usr_1", func(n *notifications.Notification) {
			n.Category = notifications.CategoryPaymentResult
			n.Title = "Payment declined"
			now := time.Now().UTC()
			n.ReadAt = &now
		})
		seedNotification(t, s, "n3", "usr_1", nil)

		got, err := s.List(ctx, "usr_1", notifications.ListOptions{
			Categories: []notifications.Category{notifications.CategoryPaymentResult},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.List(ctx, "usr_1", notifications.ListOptions{
			Categories: []notifications.Category{notifications.CategoryPaymentResult},
			OnlyUnread: true,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].ID)

		got, err = s.List(ctx, "usr_1", notifications.ListOptions{Search: "declined"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n2", got[0].ID)
	})

	t.Run("date range", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		for i := range 3 {
			seedNotification(t, s, fmt.Sprintf("n%d", i), "usr_1", func(n *notifications.Notification) {
				n.CreatedAt = base.AddDate(0, 0, i)
			})
		}

		since := base.AddDate(0, 0, 1)
		until := base.AddDate(0, 0, 2)
		got, err := s.List(ctx, "usr_1", notifications.ListOptions{Since: &since, Until: &until})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].ID)
	})

	t.Run("empty user returns empty slice", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		got, err := s.List(ctx, "usr_nobody", notifications.ListOptions{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestMemoryStorage_DeliverySide(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("append attempt returns updated history", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		seedNotification(t, s, "n1", "usr_1", nil)

		got, err := s.AppendAttempt(ctx, "n1", notifications.DeliveryAttempt{
			Channel:     notifications.ChannelInApp,
			AttemptedAt: time.Now().UTC(),
			Success:     true,
			Final:       true,
		})
		require.NoError(t, err)
		require.Len(t, got.Attempts, 1)
		assert.True(t, got.Attempts[0].Success)

		_, err = s.AppendAttempt(ctx, "missing", notifications.DeliveryAttempt{})
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("due scheduled listing", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		now := time.Now().UTC()
		past := now.Add(-time.Minute)
		future := now.Add(time.Hour)

		seedNotification(t, s, "due", "usr_1", func(n *notifications.Notification) {
			n.Status = notifications.StatusPending
			n.ScheduledFor = &past
		})
		seedNotification(t, s, "later", "usr_1", func(n *notifications.Notification) {
			n.Status = notifications.StatusPending
			n.ScheduledFor = &future
		})

		got, err := s.ListDueScheduled(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "due", got[0].ID)
	})

	t.Run("get by id ignores ownership", func(t *testing.T) {
		t.Parallel()

		s := notifications.NewMemoryStorage()
		seedNotification(t, s, "n1", "usr_1", nil)

		got, err := s.GetByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, "usr_1", got.UserID)

		_, err = s.Get(ctx, "usr_2", "n1")
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})
}
