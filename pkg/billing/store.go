package billing

import "context"

// PaymentStore persists payments. Upsert is keyed by the provider
// payment id; re-applying the same record is a no-op state-wise.
type PaymentStore interface {
	Upsert(ctx context.Context, payment Payment) error
	Get(ctx context.Context, paymentID string) (*Payment, error)
}

// SubscriptionStore persists subscriptions, keyed by the provider
// subscription id.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub Subscription) error
	Get(ctx context.Context, subID string) (*Subscription, error)
}

// LedgerStore persists derived ledger entries. Record ignores entries
// whose id already exists, which makes replays safe.
type LedgerStore interface {
	Record(ctx context.Context, entry LedgerEntry) error
	ListByUser(ctx context.Context, userID string) ([]LedgerEntry, error)
}
