package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentPayload is the normalized data section of payment events.
type PaymentPayload struct {
	PaymentID      string    `json:"payment_id"`
	UserID         string    `json:"user_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// SubscriptionPayload is the normalized data section of subscription
// events.
type SubscriptionPayload struct {
	SubscriptionID   string     `json:"subscription_id"`
	UserID           string     `json:"user_id"`
	PlanID           string     `json:"plan_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// DecodePaymentPayload parses and validates a payment data section.
func DecodePaymentPayload(data json.RawMessage) (PaymentPayload, error) {
	var p PaymentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PaymentPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.PaymentID == "" {
		return PaymentPayload{}, fmt.Errorf("%w: missing payment_id", ErrMalformedPayload)
	}
	if p.UserID == "" {
		return PaymentPayload{}, fmt.Errorf("%w: missing user_id", ErrMalformedPayload)
	}
	return p, nil
}

// DecodeSubscriptionPayload parses and validates a subscription data
// section.
func DecodeSubscriptionPayload(data json.RawMessage) (SubscriptionPayload, error) {
	var p SubscriptionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return SubscriptionPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.SubscriptionID == "" {
		return SubscriptionPayload{}, fmt.Errorf("%w: missing subscription_id", ErrMalformedPayload)
	}
	if p.UserID == "" {
		return SubscriptionPayload{}, fmt.Errorf("%w: missing user_id", ErrMalformedPayload)
	}
	return p, nil
}
