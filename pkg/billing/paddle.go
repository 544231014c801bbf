package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/mentorhub/pulse/pkg/events"
)

// PaddleConfig holds the Paddle webhook settings.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// paddleEventMap translates Paddle webhook event names onto the
// internal closed event set.
var paddleEventMap = map[string]events.EventType{
	"transaction.completed":      events.EventTypePaymentSucceeded,
	"transaction.payment_failed": events.EventTypePaymentFailed,
	"adjustment.created":         events.EventTypePaymentRefunded,
	"subscription.created":       events.EventTypeSubscriptionCreated,
	"subscription.updated":       events.EventTypeSubscriptionUpdated,
	"subscription.canceled":      events.EventTypeSubscriptionCancelled,
	"subscription.past_due":      events.EventTypeSubscriptionPastDue,
}

// PaddleSource verifies Paddle webhooks and rewrites them into the
// internal event envelope, so the rest of the pipeline only ever sees
// one payload shape regardless of provider.
type PaddleSource struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleSource creates a Paddle webhook source.
func NewPaddleSource(cfg PaddleConfig) (*PaddleSource, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: missing webhook secret", ErrInvalidProviderSignature)
	}
	return &PaddleSource{verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret)}, nil
}

// paddleEnvelope is the outer shape of a Paddle webhook body.
type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Translate verifies the Paddle signature and returns the payload
// rewritten as an internal envelope, ready for Store.Insert and
// dispatch. The Paddle event id is kept as the external id so provider
// redeliveries stay deduplicated.
func (s *PaddleSource) Translate(ctx context.Context, payload []byte, signature string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := s.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProviderSignature, err)
	}
	if !valid {
		return nil, ErrInvalidProviderSignature
	}

	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	eventType, err := MapPaddleEvent(env.EventType)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(events.Envelope{
		EventID:    env.EventID,
		EventType:  string(eventType),
		OccurredAt: env.OccurredAt,
		Data:       normalizePaddleData(eventType, env.Data, env.OccurredAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return out, nil
}

// MapPaddleEvent maps a Paddle event name onto the internal event set.
func MapPaddleEvent(name string) (events.EventType, error) {
	t, ok := paddleEventMap[name]
	if !ok {
		return events.EventTypeUnknown, fmt.Errorf("%w: %s", ErrUnsupportedProviderEvent, name)
	}
	return t, nil
}

// paddleData is the subset of Paddle's data section the pipeline needs.
// User and plan identifiers ride in custom_data, set at checkout.
type paddleData struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	CustomData     struct {
		UserID string `json:"user_id"`
	} `json:"custom_data"`
	Details struct {
		Totals struct {
			Total        string `json:"total"`
			CurrencyCode string `json:"currency_code"`
		} `json:"totals"`
	} `json:"details"`
	Items []struct {
		Price struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
}

// normalizePaddleData converts Paddle's data section into the internal
// payment or subscription payload. Fields that do not decode are left
// zero; the handlers validate and skip what they cannot use.
func normalizePaddleData(t events.EventType, data json.RawMessage, occurredAt time.Time) json.RawMessage {
	var pd paddleData
	if err := json.Unmarshal(data, &pd); err != nil {
		return data
	}

	switch t {
	case events.EventTypePaymentSucceeded, events.EventTypePaymentFailed, events.EventTypePaymentRefunded:
		payload := PaymentPayload{
			PaymentID:      pd.ID,
			UserID:         pd.CustomData.UserID,
			SubscriptionID: pd.SubscriptionID,
			AmountCents:    parseCents(pd.Details.Totals.Total),
			Currency:       pd.Details.Totals.CurrencyCode,
			OccurredAt:     occurredAt,
		}
		out, err := json.Marshal(payload)
		if err != nil {
			return data
		}
		return out
	default:
		payload := SubscriptionPayload{
			SubscriptionID: pd.ID,
			UserID:         pd.CustomData.UserID,
			OccurredAt:     occurredAt,
		}
		if len(pd.Items) > 0 {
			payload.PlanID = pd.Items[0].Price.ID
		}
		out, err := json.Marshal(payload)
		if err != nil {
			return data
		}
		return out
	}
}

// parseCents parses Paddle's string money amounts, already expressed in
// the currency's smallest unit.
func parseCents(s string) int64 {
	var cents int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int64(r-'0')
	}
	return cents
}
