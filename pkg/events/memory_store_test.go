package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/events"
)

func newStoredEvent(externalID string, receivedAt time.Time) *events.Event {
	return &events.Event{
		ID:         uuid.New(),
		ExternalID: externalID,
		Type:       events.EventTypePaymentSucceeded,
		Payload:    []byte(`{"event_id":"` + externalID + `"}`),
		ReceivedAt: receivedAt,
		Status:     events.StatusUnprocessed,
	}
}

func TestMemoryStore_Insert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := events.NewMemoryStore()

	require.NoError(t, store.Insert(ctx, newStoredEvent("evt_1", time.Now())))

	err := store.Insert(ctx, newStoredEvent("evt_1", time.Now()))
	assert.ErrorIs(t, err, events.ErrDuplicateEvent)

	stored, err := store.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, events.StatusUnprocessed, stored.Status)
}

func TestMemoryStore_StatusTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := events.NewMemoryStore()
	require.NoError(t, store.Insert(ctx, newStoredEvent("evt_1", time.Now())))

	require.NoError(t, store.MarkFailed(ctx, "evt_1", "boom"))
	stored, err := store.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, events.StatusFailed, stored.Status)
	assert.Equal(t, int8(1), stored.RetryCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "boom", *stored.LastError)

	require.NoError(t, store.MarkProcessed(ctx, "evt_1"))
	stored, err = store.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, events.StatusProcessed, stored.Status)
	assert.Nil(t, stored.LastError)

	require.NoError(t, store.MarkSkipped(ctx, "evt_1", "not relevant"))
	stored, err = store.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, events.StatusSkipped, stored.Status)

	assert.ErrorIs(t, store.MarkProcessed(ctx, "missing"), events.ErrEventNotFound)
}

func TestMemoryStore_ListFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := events.NewMemoryStore()
	base := time.Now().UTC()

	for i, id := range []string{"evt_a", "evt_b", "evt_c"} {
		require.NoError(t, store.Insert(ctx, newStoredEvent(id, base.Add(time.Duration(i)*time.Second))))
		require.NoError(t, store.MarkFailed(ctx, id, "boom"))
	}
	// evt_c exhausts the ceiling and must not be listed below 3.
	require.NoError(t, store.MarkFailed(ctx, "evt_c", "boom"))
	require.NoError(t, store.MarkFailed(ctx, "evt_c", "boom"))

	failed, err := store.ListFailed(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "evt_a", failed[0].ExternalID)
	assert.Equal(t, "evt_b", failed[1].ExternalID)

	limited, err := store.ListFailed(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "evt_a", limited[0].ExternalID)
}

func TestMemoryStore_DeadLetterAndRequeue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := events.NewMemoryStore()
	require.NoError(t, store.Insert(ctx, newStoredEvent("evt_1", time.Now())))
	require.NoError(t, store.Insert(ctx, newStoredEvent("evt_2", time.Now())))

	require.NoError(t, store.MarkFailed(ctx, "evt_1", "boom"))
	require.NoError(t, store.MarkDeadLetter(ctx, "evt_1"))

	dead, err := store.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "evt_1", dead[0].ExternalID)

	assert.ErrorIs(t, store.Requeue(ctx, "evt_2"), events.ErrNotDeadLettered)
	assert.ErrorIs(t, store.Requeue(ctx, "missing"), events.ErrEventNotFound)

	require.NoError(t, store.Requeue(ctx, "evt_1"))
	stored, err := store.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, events.StatusFailed, stored.Status)
	assert.Equal(t, int8(0), stored.RetryCount)

	failed, err := store.ListFailed(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "evt_1", failed[0].ExternalID)
}
