package billing

import "time"

// PaymentStatus is the settled state of a payment.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is the local record of a provider payment, keyed by the
// provider's payment id so re-applying the same event converges.
type Payment struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	SubscriptionID string        `json:"subscription_id,omitempty"`
	AmountCents    int64         `json:"amount_cents"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription mirrors the provider's subscription state locally.
type Subscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	PlanID           string             `json:"plan_id"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// LedgerDirection is the sign of a ledger entry.
type LedgerDirection string

const (
	LedgerCredit LedgerDirection = "credit"
	LedgerDebit  LedgerDirection = "debit"
)

// LedgerEntry is a derived accounting record, one per successful
// payment or refund. The id is derived from the payment id so replays
// never double-book.
type LedgerEntry struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	PaymentID   string          `json:"payment_id"`
	Direction   LedgerDirection `json:"direction"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}
