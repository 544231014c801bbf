package channels_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/channels"
	"github.com/mentorhub/pulse/pkg/notifications"
	"github.com/mentorhub/pulse/pkg/webhook"
)

const relayTestSecret = "relay-secret"

func TestNewSMSAdapter_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := channels.NewSMSAdapter(channels.RelayConfig{Secret: relayTestSecret})
	assert.ErrorIs(t, err, channels.ErrInvalidConfig)

	_, err = channels.NewSMSAdapter(channels.RelayConfig{Endpoint: "http://localhost"})
	assert.ErrorIs(t, err, channels.ErrInvalidConfig)
}

func TestRelayAdapter_DeliverSMS(t *testing.T) {
	t.Parallel()

	var captured struct {
		body []byte
		sig  webhook.Signature
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured.body = body
		captured.sig, err = webhook.FromHeader(r.Header)
		require.NoError(t, err)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	adapter, err := channels.NewSMSAdapter(channels.RelayConfig{
		Endpoint: srv.URL,
		Secret:   relayTestSecret,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, notifications.ChannelSMS, adapter.Channel())

	notif := notifications.Notification{
		ID:       "ntf_1",
		UserID:   "usr_1",
		Title:    "Session reminder",
		Body:     "Your session starts in 15 minutes.",
		Priority: notifications.PriorityHigh,
	}
	rcpt := channels.Recipient{UserID: "usr_1", PhoneNumber: "+15550001111"}

	require.NoError(t, adapter.Deliver(context.Background(), notif, rcpt))

	// The relay can verify the payload with the shared secret.
	require.NoError(t, webhook.Verify(relayTestSecret, captured.body, captured.sig, time.Minute))
	assert.Equal(t, "ntf_1:sms", captured.sig.DeliveryID)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(captured.body, &msg))
	assert.Equal(t, "ntf_1", msg["notification_id"])
	assert.Equal(t, "+15550001111", msg["phone_number"])
	assert.Equal(t, "high", msg["priority"])
}

func TestRelayAdapter_DeliverPush(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "tok_abc", msg["push_token"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter, err := channels.NewPushAdapter(channels.RelayConfig{Endpoint: srv.URL, Secret: relayTestSecret})
	require.NoError(t, err)
	assert.Equal(t, notifications.ChannelPush, adapter.Channel())

	notif := notifications.Notification{ID: "ntf_2", UserID: "usr_1", Title: "Hello"}
	err = adapter.Deliver(context.Background(), notif, channels.Recipient{UserID: "usr_1", PushToken: "tok_abc"})
	require.NoError(t, err)
}

func TestRelayAdapter_MissingContact(t *testing.T) {
	t.Parallel()

	adapter, err := channels.NewSMSAdapter(channels.RelayConfig{Endpoint: "http://localhost:1", Secret: relayTestSecret})
	require.NoError(t, err)

	err = adapter.Deliver(context.Background(), notifications.Notification{ID: "ntf_1", UserID: "usr_1"}, channels.Recipient{UserID: "usr_1"})
	assert.ErrorIs(t, err, channels.ErrMissingContact)
}

func TestRelayAdapter_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter, err := channels.NewPushAdapter(channels.RelayConfig{Endpoint: srv.URL, Secret: relayTestSecret})
	require.NoError(t, err)

	err = adapter.Deliver(context.Background(), notifications.Notification{ID: "ntf_1", UserID: "usr_1"}, channels.Recipient{UserID: "usr_1", PushToken: "tok"})
	assert.ErrorIs(t, err, channels.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "502")
}
