package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/webhook"
)

const testSecret = "gateway-test-secret"

func testConfig() events.Config {
	return events.Config{
		Secret:          testSecret,
		MaxPayloadBytes: 1 << 20,
		SignatureMaxAge: 5 * time.Minute,
		MaxRetries:      3,
	}
}

func signedPayload(t *testing.T, eventID, eventType string) ([]byte, webhook.Signature) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"event_id":    eventID,
		"event_type":  eventType,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
		"data":        map[string]string{"user_id": "usr_1"},
	})
	require.NoError(t, err)

	sig, err := webhook.Sign(testSecret, payload, "dlv_"+eventID)
	require.NoError(t, err)
	return payload, sig
}

func TestGateway_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("dispatches known event to handler", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		registry := events.NewRegistry()

		var handled atomic.Int32
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			handled.Add(1)
			return nil
		}))

		gw, err := events.NewGateway(testConfig(), store, registry)
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_1", "payment.succeeded")
		receipt, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)
		assert.False(t, receipt.Duplicate)
		assert.Equal(t, int32(1), handled.Load())

		stored, err := store.Get(context.Background(), "evt_1")
		require.NoError(t, err)
		assert.Equal(t, events.StatusProcessed, stored.Status)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		t.Parallel()

		gw, err := events.NewGateway(testConfig(), events.NewMemoryStore(), events.NewRegistry())
		require.NoError(t, err)

		_, err = gw.Ingest(context.Background(), nil, webhook.Signature{})
		assert.ErrorIs(t, err, events.ErrEmptyPayload)
	})

	t.Run("rejects oversized payload", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.MaxPayloadBytes = 16
		gw, err := events.NewGateway(cfg, events.NewMemoryStore(), events.NewRegistry())
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_big", "payment.succeeded")
		_, err = gw.Ingest(context.Background(), payload, sig)
		assert.ErrorIs(t, err, events.ErrPayloadTooLarge)
	})

	t.Run("invalid signature mutates nothing", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		gw, err := events.NewGateway(testConfig(), store, events.NewRegistry())
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_bad_sig", "payment.succeeded")
		sig.Digest = "deadbeef"

		_, err = gw.Ingest(context.Background(), payload, sig)
		assert.ErrorIs(t, err, events.ErrInvalidSignature)

		_, err = store.Get(context.Background(), "evt_bad_sig")
		assert.ErrorIs(t, err, events.ErrEventNotFound)
	})

	t.Run("rejects malformed envelope", func(t *testing.T) {
		t.Parallel()

		gw, err := events.NewGateway(testConfig(), events.NewMemoryStore(), events.NewRegistry())
		require.NoError(t, err)

		payload := []byte(`{"not_an_envelope":true}`)
		sig, err := webhook.Sign(testSecret, payload, "dlv_malformed")
		require.NoError(t, err)

		_, err = gw.Ingest(context.Background(), payload, sig)
		assert.ErrorIs(t, err, events.ErrMalformedPayload)
	})

	t.Run("duplicate delivery runs handler once", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		registry := events.NewRegistry()

		var handled atomic.Int32
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			handled.Add(1)
			return nil
		}))

		gw, err := events.NewGateway(testConfig(), store, registry)
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_dup", "payment.succeeded")

		first, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.False(t, first.Duplicate)

		second, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.True(t, second.Accepted)
		assert.True(t, second.Duplicate)

		assert.Equal(t, int32(1), handled.Load())
	})

	t.Run("concurrent deliveries of same id run handler once", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		registry := events.NewRegistry()

		var handled atomic.Int32
		registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			handled.Add(1)
			return nil
		}))

		gw, err := events.NewGateway(testConfig(), store, registry)
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_race", "payment.succeeded")

		const workers = 16
		var wg sync.WaitGroup
		var duplicates atomic.Int32
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				receipt, err := gw.Ingest(context.Background(), payload, sig)
				assert.NoError(t, err)
				if receipt.Duplicate {
					duplicates.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), handled.Load())
		assert.Equal(t, int32(workers-1), duplicates.Load())
	})

	t.Run("unknown event type accepted and skipped", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		gw, err := events.NewGateway(testConfig(), store, events.NewRegistry())
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_unknown", "invoice.finalized")
		receipt, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)

		stored, err := store.Get(context.Background(), "evt_unknown")
		require.NoError(t, err)
		assert.Equal(t, events.StatusSkipped, stored.Status)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, "unknown event type")
	})

	t.Run("handler skip marks event skipped", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		registry := events.NewRegistry()
		registry.Register(events.EventTypePaymentFailed, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return fmt.Errorf("%w: payment record missing", events.ErrSkipEvent)
		}))

		gw, err := events.NewGateway(testConfig(), store, registry)
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_skip", "payment.failed")
		receipt, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)

		stored, err := store.Get(context.Background(), "evt_skip")
		require.NoError(t, err)
		assert.Equal(t, events.StatusSkipped, stored.Status)
	})

	t.Run("handler failure accepted and marked failed", func(t *testing.T) {
		t.Parallel()

		store := events.NewMemoryStore()
		registry := events.NewRegistry()
		registry.Register(events.EventTypeSubscriptionCreated, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return errors.New("downstream unavailable")
		}))

		gw, err := events.NewGateway(testConfig(), store, registry)
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_fail", "subscription.created")
		receipt, err := gw.Ingest(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)

		stored, err := store.Get(context.Background(), "evt_fail")
		require.NoError(t, err)
		assert.Equal(t, events.StatusFailed, stored.Status)
		assert.Equal(t, int8(1), stored.RetryCount)
		require.NotNil(t, stored.LastError)
		assert.Equal(t, "downstream unavailable", *stored.LastError)
	})

	t.Run("expired signature rejected", func(t *testing.T) {
		t.Parallel()

		gw, err := events.NewGateway(testConfig(), events.NewMemoryStore(), events.NewRegistry())
		require.NoError(t, err)

		payload, sig := signedPayload(t, "evt_stale", "payment.succeeded")
		sig.Timestamp = time.Now().Add(-time.Hour).Unix()

		_, err = gw.Ingest(context.Background(), payload, sig)
		assert.ErrorIs(t, err, events.ErrInvalidSignature)
	})
}

func TestNewGateway(t *testing.T) {
	t.Parallel()

	t.Run("nil store rejected", func(t *testing.T) {
		t.Parallel()

		_, err := events.NewGateway(testConfig(), nil, events.NewRegistry())
		assert.ErrorIs(t, err, events.ErrStoreNil)
	})

	t.Run("summary hides secret", func(t *testing.T) {
		t.Parallel()

		gw, err := events.NewGateway(testConfig(), events.NewMemoryStore(), nil)
		require.NoError(t, err)

		summary := gw.Summary()
		assert.Equal(t, true, summary["secret_configured"])
		assert.NotContains(t, fmt.Sprint(summary), testSecret)
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, events.EventTypePaymentRefunded, events.Normalize("payment.refunded"))
	assert.Equal(t, events.EventTypeSubscriptionPastDue, events.Normalize("subscription.past_due"))
	assert.Equal(t, events.EventTypeUnknown, events.Normalize("payout.created"))
	assert.Equal(t, events.EventTypeUnknown, events.Normalize(""))
}

func TestGateway_IngestVerified(t *testing.T) {
	t.Parallel()

	store := events.NewMemoryStore()
	registry := events.NewRegistry()

	var handled atomic.Int32
	registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
		handled.Add(1)
		return nil
	}))

	gw, err := events.NewGateway(testConfig(), store, registry)
	require.NoError(t, err)

	payload, _ := signedPayload(t, "evt_verified", "payment.succeeded")

	// No signature needed: the provider translator already verified it.
	receipt, err := gw.IngestVerified(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.False(t, receipt.Duplicate)
	assert.Equal(t, int32(1), handled.Load())

	receipt, err = gw.IngestVerified(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, receipt.Duplicate)
	assert.Equal(t, int32(1), handled.Load())

	_, err = gw.IngestVerified(context.Background(), nil)
	assert.ErrorIs(t, err, events.ErrEmptyPayload)
}
