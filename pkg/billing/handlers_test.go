package billing_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorhub/pulse/pkg/billing"
	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/notifications"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Request
}

func (n *recordingNotifier) Send(ctx context.Context, req notifications.Request) (*notifications.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return &notifications.Notification{ID: "n1", UserID: req.UserID}, nil
}

func (n *recordingNotifier) Sent() []notifications.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Request(nil), n.sent...)
}

type billingFixture struct {
	handlers *billing.Handlers
	payments *billing.MemoryPayments
	subs     *billing.MemorySubscriptions
	ledger   *billing.MemoryLedger
	notifier *recordingNotifier
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	f := &billingFixture{
		payments: billing.NewMemoryPayments(),
		subs:     billing.NewMemorySubscriptions(),
		ledger:   billing.NewMemoryLedger(),
		notifier: &recordingNotifier{},
	}
	h, err := billing.NewHandlers(f.payments, f.subs, f.ledger, f.notifier)
	require.NoError(t, err)
	f.handlers = h
	return f
}

func paymentEvent(t *testing.T, eventType events.EventType, payload billing.PaymentPayload) events.Event {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(events.Envelope{
		EventID:    "evt_" + payload.PaymentID,
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)

	return events.Event{ID: uuid.New(), ExternalID: "evt_" + payload.PaymentID, Type: eventType, Payload: body}
}

func subscriptionEvent(t *testing.T, eventType events.EventType, payload billing.SubscriptionPayload) events.Event {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(events.Envelope{
		EventID:    "evt_" + payload.SubscriptionID,
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)

	return events.Event{ID: uuid.New(), ExternalID: "evt_" + payload.SubscriptionID, Type: eventType, Payload: body}
}

func TestHandlers_PaymentSucceeded(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)
	evt := paymentEvent(t, events.EventTypePaymentSucceeded, billing.PaymentPayload{
		PaymentID:   "pay_1",
		UserID:      "usr_1",
		AmountCents: 5000,
		Currency:    "USD",
	})

	require.NoError(t, f.handlers.PaymentSucceeded(context.Background(), evt))

	payment, err := f.payments.Get(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusSucceeded, payment.Status)

	entries, err := f.ledger.ListByUser(context.Background(), "usr_1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, billing.LedgerCredit, entries[0].Direction)
	assert.Equal(t, int64(5000), entries[0].AmountCents)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notifications.CategoryPaymentResult, sent[0].Category)
	assert.Equal(t, "usr_1", sent[0].UserID)
	assert.Contains(t, sent[0].Body, "50.00 USD")
}

func TestHandlers_PaymentSucceededIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)
	evt := paymentEvent(t, events.EventTypePaymentSucceeded, billing.PaymentPayload{
		PaymentID:   "pay_1",
		UserID:      "usr_1",
		AmountCents: 5000,
		Currency:    "USD",
	})

	require.NoError(t, f.handlers.PaymentSucceeded(context.Background(), evt))
	require.NoError(t, f.handlers.PaymentSucceeded(context.Background(), evt))

	// Re-applying converges: still one ledger entry.
	entries, err := f.ledger.ListByUser(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	payment, err := f.payments.Get(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusSucceeded, payment.Status)
}

func TestHandlers_PaymentFailed(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)
	evt := paymentEvent(t, events.EventTypePaymentFailed, billing.PaymentPayload{
		PaymentID:     "pay_2",
		UserID:        "usr_1",
		AmountCents:   5000,
		Currency:      "USD",
		FailureReason: "card_declined",
	})

	require.NoError(t, f.handlers.PaymentFailed(context.Background(), evt))

	payment, err := f.payments.Get(context.Background(), "pay_2")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card_declined", payment.FailureReason)

	// No ledger entry for a failed payment.
	entries, err := f.ledger.ListByUser(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notifications.PriorityHigh, sent[0].Priority)
}

func TestHandlers_PaymentRefunded(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)
	evt := paymentEvent(t, events.EventTypePaymentRefunded, billing.PaymentPayload{
		PaymentID:   "pay_1",
		UserID:      "usr_1",
		AmountCents: 5000,
		Currency:    "USD",
	})

	require.NoError(t, f.handlers.PaymentRefunded(context.Background(), evt))

	payment, err := f.payments.Get(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusRefunded, payment.Status)

	entries, err := f.ledger.ListByUser(context.Background(), "usr_1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, billing.LedgerDebit, entries[0].Direction)
}

func TestHandlers_SubscriptionLifecycle(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()

	created := subscriptionEvent(t, events.EventTypeSubscriptionCreated, billing.SubscriptionPayload{
		SubscriptionID:   "sub_1",
		UserID:           "usr_1",
		PlanID:           "plan_pro",
		CurrentPeriodEnd: &periodEnd,
	})
	require.NoError(t, f.handlers.SubscriptionCreated(context.Background(), created))

	sub, err := f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "plan_pro", sub.PlanID)

	pastDue := subscriptionEvent(t, events.EventTypeSubscriptionPastDue, billing.SubscriptionPayload{
		SubscriptionID: "sub_1",
		UserID:         "usr_1",
		PlanID:         "plan_pro",
	})
	require.NoError(t, f.handlers.SubscriptionPastDue(context.Background(), pastDue))

	sub, err = f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionStatusPastDue, sub.Status)

	cancelled := subscriptionEvent(t, events.EventTypeSubscriptionCancelled, billing.SubscriptionPayload{
		SubscriptionID: "sub_1",
		UserID:         "usr_1",
		PlanID:         "plan_pro",
	})
	require.NoError(t, f.handlers.SubscriptionCancelled(context.Background(), cancelled))

	sub, err = f.subs.Get(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionStatusCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)

	// Created, past due and cancelled each notified; updated stays silent.
	assert.Len(t, f.notifier.Sent(), 3)
}

func TestHandlers_MalformedPayloadSkips(t *testing.T) {
	t.Parallel()

	f := newBillingFixture(t)

	body, err := json.Marshal(events.Envelope{
		EventID:    "evt_bad",
		EventType:  string(events.EventTypePaymentSucceeded),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"user_id":"usr_1"}`),
	})
	require.NoError(t, err)

	evt := events.Event{ID: uuid.New(), ExternalID: "evt_bad", Type: events.EventTypePaymentSucceeded, Payload: body}
	err = f.handlers.PaymentSucceeded(context.Background(), evt)
	assert.ErrorIs(t, err, events.ErrSkipEvent)

	entries, lerr := f.ledger.ListByUser(context.Background(), "usr_1")
	require.NoError(t, lerr)
	assert.Empty(t, entries)
}

func TestMapPaddleEvent(t *testing.T) {
	t.Parallel()

	got, err := billing.MapPaddleEvent("transaction.completed")
	require.NoError(t, err)
	assert.Equal(t, events.EventTypePaymentSucceeded, got)

	got, err = billing.MapPaddleEvent("subscription.canceled")
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeSubscriptionCancelled, got)

	_, err = billing.MapPaddleEvent("payout.created")
	assert.ErrorIs(t, err, billing.ErrUnsupportedProviderEvent)
}
