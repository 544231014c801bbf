package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mentorhub/pulse/pkg/notifications"
	"github.com/mentorhub/pulse/pkg/webhook"
)

// RelayConfig holds settings for a signed HTTP relay adapter. The relay
// is a downstream service that owns the provider integration; this side
// only proves the message came from us.
type RelayConfig struct {
	Endpoint string        `env:"ENDPOINT,required"`
	Secret   string        `env:"SECRET,required"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// relayMessage is the body posted to the relay.
type relayMessage struct {
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Priority       string         `json:"priority"`
	Data           map[string]any `json:"data,omitempty"`
	PhoneNumber    string         `json:"phone_number,omitempty"`
	PushToken      string         `json:"push_token,omitempty"`
}

// RelayAdapter posts notifications to a provider relay over HTTP. Each
// request carries an HMAC signature and a delivery id so the relay can
// authenticate and deduplicate.
type RelayAdapter struct {
	channel  notifications.Channel
	endpoint string
	secret   string
	client   *http.Client
}

// NewSMSAdapter creates a relay adapter for the SMS channel.
func NewSMSAdapter(cfg RelayConfig) (*RelayAdapter, error) {
	return newRelayAdapter(notifications.ChannelSMS, cfg)
}

// NewPushAdapter creates a relay adapter for the push channel.
func NewPushAdapter(cfg RelayConfig) (*RelayAdapter, error) {
	return newRelayAdapter(notifications.ChannelPush, cfg)
}

func newRelayAdapter(ch notifications.Channel, cfg RelayConfig) (*RelayAdapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: %s relay endpoint is required", ErrInvalidConfig, ch)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: %s relay secret is required", ErrInvalidConfig, ch)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RelayAdapter{
		channel:  ch,
		endpoint: cfg.Endpoint,
		secret:   cfg.Secret,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (a *RelayAdapter) Channel() notifications.Channel {
	return a.channel
}

func (a *RelayAdapter) Deliver(ctx context.Context, notif notifications.Notification, rcpt Recipient) error {
	msg := relayMessage{
		NotificationID: notif.ID,
		UserID:         notif.UserID,
		Title:          notif.Title,
		Body:           notif.Body,
		Priority:       string(notif.Priority),
		Data:           notif.Data,
	}
	switch a.channel {
	case notifications.ChannelSMS:
		if rcpt.PhoneNumber == "" {
			return fmt.Errorf("%w: no phone number for user %s", ErrMissingContact, rcpt.UserID)
		}
		msg.PhoneNumber = rcpt.PhoneNumber
	case notifications.ChannelPush:
		if rcpt.PushToken == "" {
			return fmt.Errorf("%w: no push token for user %s", ErrMissingContact, rcpt.UserID)
		}
		msg.PushToken = rcpt.PushToken
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode relay message: %w", err)
	}

	// Delivery id is stable per notification and channel, so relay
	// retries collapse to one provider send.
	sig, err := webhook.Sign(a.secret, payload, notif.ID+":"+string(a.channel))
	if err != nil {
		return fmt.Errorf("failed to sign relay message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	sig.Apply(req.Header)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: relay returned %d: %s", ErrDeliveryFailed, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
