package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

// Notifier sends user notifications. Implemented by
// *notifications.Engine.
type Notifier interface {
	Send(ctx context.Context, req notifications.Request) (*notifications.Notification, error)
}

// Handlers applies billing events to domain state and emits user
// notifications. Every handler is idempotent: domain writes are keyed
// upserts by provider ids, so the event sweep can safely re-run them.
//
// The domain write always commits before the notification is sent, and
// a notification failure never fails the handler: losing a toast is
// recoverable, losing a payment record is not.
type Handlers struct {
	payments PaymentStore
	subs     SubscriptionStore
	ledger   LedgerStore
	notifier Notifier
	log      *slog.Logger
}

// HandlersOption configures Handlers.
type HandlersOption func(*Handlers)

// WithHandlersLogger sets the logger for the Handlers.
func WithHandlersLogger(log *slog.Logger) HandlersOption {
	return func(h *Handlers) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandlers creates the billing event handlers.
func NewHandlers(payments PaymentStore, subs SubscriptionStore, ledger LedgerStore, notifier Notifier, opts ...HandlersOption) (*Handlers, error) {
	if payments == nil || subs == nil || ledger == nil {
		return nil, ErrStoreNil
	}

	h := &Handlers{
		payments: payments,
		subs:     subs,
		ledger:   ledger,
		notifier: notifier,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register binds every handler to its event type.
func (h *Handlers) Register(registry *events.Registry) {
	registry.Register(events.EventTypePaymentSucceeded, events.HandlerFunc(h.PaymentSucceeded))
	registry.Register(events.EventTypePaymentFailed, events.HandlerFunc(h.PaymentFailed))
	registry.Register(events.EventTypePaymentRefunded, events.HandlerFunc(h.PaymentRefunded))
	registry.Register(events.EventTypeSubscriptionCreated, events.HandlerFunc(h.SubscriptionCreated))
	registry.Register(events.EventTypeSubscriptionUpdated, events.HandlerFunc(h.SubscriptionUpdated))
	registry.Register(events.EventTypeSubscriptionCancelled, events.HandlerFunc(h.SubscriptionCancelled))
	registry.Register(events.EventTypeSubscriptionPastDue, events.HandlerFunc(h.SubscriptionPastDue))
}

func (h *Handlers) PaymentSucceeded(ctx context.Context, evt events.Event) error {
	payload, err := h.paymentPayload(evt)
	if err != nil {
		return err
	}

	if err := h.payments.Upsert(ctx, paymentFrom(payload, PaymentStatusSucceeded)); err != nil {
		return fmt.Errorf("failed to record payment %s: %w", payload.PaymentID, err)
	}
	if err := h.ledger.Record(ctx, LedgerEntry{
		ID:          "credit:" + payload.PaymentID,
		UserID:      payload.UserID,
		PaymentID:   payload.PaymentID,
		Direction:   LedgerCredit,
		AmountCents: payload.AmountCents,
		Currency:    payload.Currency,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to book ledger credit for %s: %w", payload.PaymentID, err)
	}

	h.notify(ctx, notifications.Request{
		UserID:   payload.UserID,
		Category: notifications.CategoryPaymentResult,
		Priority: notifications.PriorityMedium,
		Title:    "Payment received",
		Body:     fmt.Sprintf("Your payment of %s was processed.", formatAmount(payload.AmountCents, payload.Currency)),
		Data:     map[string]any{"payment_id": payload.PaymentID},
	})
	return nil
}

func (h *Handlers) PaymentFailed(ctx context.Context, evt events.Event) error {
	payload, err := h.paymentPayload(evt)
	if err != nil {
		return err
	}

	if err := h.payments.Upsert(ctx, paymentFrom(payload, PaymentStatusFailed)); err != nil {
		return fmt.Errorf("failed to record payment %s: %w", payload.PaymentID, err)
	}

	h.notify(ctx, notifications.Request{
		UserID:   payload.UserID,
		Category: notifications.CategoryPaymentResult,
		Priority: notifications.PriorityHigh,
		Title:    "Payment failed",
		Body:     "We could not process your payment. Please update your payment method.",
		Data:     map[string]any{"payment_id": payload.PaymentID, "reason": payload.FailureReason},
	})
	return nil
}

func (h *Handlers) PaymentRefunded(ctx context.Context, evt events.Event) error {
	payload, err := h.paymentPayload(evt)
	if err != nil {
		return err
	}

	if err := h.payments.Upsert(ctx, paymentFrom(payload, PaymentStatusRefunded)); err != nil {
		return fmt.Errorf("failed to record payment %s: %w", payload.PaymentID, err)
	}
	if err := h.ledger.Record(ctx, LedgerEntry{
		ID:          "debit:" + payload.PaymentID,
		UserID:      payload.UserID,
		PaymentID:   payload.PaymentID,
		Direction:   LedgerDebit,
		AmountCents: payload.AmountCents,
		Currency:    payload.Currency,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to book ledger debit for %s: %w", payload.PaymentID, err)
	}

	h.notify(ctx, notifications.Request{
		UserID:   payload.UserID,
		Category: notifications.CategoryPaymentResult,
		Priority: notifications.PriorityMedium,
		Title:    "Payment refunded",
		Body:     fmt.Sprintf("Your payment of %s was refunded.", formatAmount(payload.AmountCents, payload.Currency)),
		Data:     map[string]any{"payment_id": payload.PaymentID},
	})
	return nil
}

func (h *Handlers) SubscriptionCreated(ctx context.Context, evt events.Event) error {
	return h.applySubscription(ctx, evt, SubscriptionStatusActive, &notifications.Request{
		Category: notifications.CategorySystemAlert,
		Priority: notifications.PriorityMedium,
		Title:    "Subscription activated",
		Body:     "Your subscription is now active.",
	})
}

func (h *Handlers) SubscriptionUpdated(ctx context.Context, evt events.Event) error {
	return h.applySubscription(ctx, evt, SubscriptionStatusActive, nil)
}

func (h *Handlers) SubscriptionCancelled(ctx context.Context, evt events.Event) error {
	return h.applySubscription(ctx, evt, SubscriptionStatusCancelled, &notifications.Request{
		Category: notifications.CategorySystemAlert,
		Priority: notifications.PriorityMedium,
		Title:    "Subscription cancelled",
		Body:     "Your subscription has been cancelled.",
	})
}

func (h *Handlers) SubscriptionPastDue(ctx context.Context, evt events.Event) error {
	return h.applySubscription(ctx, evt, SubscriptionStatusPastDue, &notifications.Request{
		Category: notifications.CategoryPaymentResult,
		Priority: notifications.PriorityHigh,
		Title:    "Subscription past due",
		Body:     "Your last payment did not go through. Update your payment method to keep your subscription.",
	})
}

func (h *Handlers) applySubscription(ctx context.Context, evt events.Event, status SubscriptionStatus, notif *notifications.Request) error {
	env, err := events.ParseEnvelope(evt.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", events.ErrSkipEvent, err)
	}
	payload, err := DecodeSubscriptionPayload(env.Data)
	if err != nil {
		return fmt.Errorf("%w: %w", events.ErrSkipEvent, err)
	}

	sub := Subscription{
		ID:               payload.SubscriptionID,
		UserID:           payload.UserID,
		PlanID:           payload.PlanID,
		Status:           status,
		CurrentPeriodEnd: payload.CurrentPeriodEnd,
		UpdatedAt:        time.Now().UTC(),
	}
	if status == SubscriptionStatusCancelled {
		sub.CancelledAt = &sub.UpdatedAt
	}
	if err := h.subs.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to record subscription %s: %w", payload.SubscriptionID, err)
	}

	if notif != nil {
		req := *notif
		req.UserID = payload.UserID
		req.Data = map[string]any{"subscription_id": payload.SubscriptionID, "plan_id": payload.PlanID}
		h.notify(ctx, req)
	}
	return nil
}

// paymentPayload decodes the payment data section, translating
// malformed payloads into a permanent skip: retrying cannot fix a
// payload the provider already signed off.
func (h *Handlers) paymentPayload(evt events.Event) (PaymentPayload, error) {
	env, err := events.ParseEnvelope(evt.Payload)
	if err != nil {
		return PaymentPayload{}, fmt.Errorf("%w: %w", events.ErrSkipEvent, err)
	}
	payload, err := DecodePaymentPayload(env.Data)
	if err != nil {
		return PaymentPayload{}, fmt.Errorf("%w: %w", events.ErrSkipEvent, err)
	}
	return payload, nil
}

func (h *Handlers) notify(ctx context.Context, req notifications.Request) {
	if h.notifier == nil {
		return
	}
	if _, err := h.notifier.Send(ctx, req); err != nil {
		h.log.WarnContext(ctx, "failed to send billing notification",
			logger.UserID(req.UserID),
			logger.Category(string(req.Category)),
			logger.Error(err))
	}
}

func paymentFrom(p PaymentPayload, status PaymentStatus) Payment {
	return Payment{
		ID:             p.PaymentID,
		UserID:         p.UserID,
		SubscriptionID: p.SubscriptionID,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Status:         status,
		FailureReason:  p.FailureReason,
		OccurredAt:     p.OccurredAt,
		UpdatedAt:      time.Now().UTC(),
	}
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}
