package billing

import (
	"context"
	"sort"
	"sync"
)

// MemoryPayments is an in-memory PaymentStore.
type MemoryPayments struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

// NewMemoryPayments creates an empty in-memory payment store.
func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{payments: make(map[string]Payment)}
}

func (s *MemoryPayments) Upsert(ctx context.Context, payment Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = payment
	return nil
}

func (s *MemoryPayments) Get(ctx context.Context, paymentID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

// MemorySubscriptions is an in-memory SubscriptionStore.
type MemorySubscriptions struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

// NewMemorySubscriptions creates an empty in-memory subscription store.
func NewMemorySubscriptions() *MemorySubscriptions {
	return &MemorySubscriptions{subs: make(map[string]Subscription)}
}

func (s *MemorySubscriptions) Upsert(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return nil
}

func (s *MemorySubscriptions) Get(ctx context.Context, subID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[subID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

// MemoryLedger is an in-memory LedgerStore.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]LedgerEntry
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]LedgerEntry)}
}

func (s *MemoryLedger) Record(ctx context.Context, entry LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Existing id means the event was replayed; keep the first booking.
	if _, exists := s.entries[entry.ID]; exists {
		return nil
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryLedger) ListByUser(ctx context.Context, userID string) ([]LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LedgerEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
