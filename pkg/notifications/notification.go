package notifications

import (
	"time"
)

// Category classifies what a notification is about. Preferences opt in
// and out per category.
type Category string

const (
	CategorySessionReminder Category = "session_reminder"
	CategoryPaymentResult   Category = "payment_result"
	CategorySystemAlert     Category = "system_alert"
	CategorySecurityAlert   Category = "security_alert"
	CategoryMarketing       Category = "marketing"
)

// Categories enumerates every known category in a stable order.
var Categories = []Category{
	CategorySessionReminder,
	CategoryPaymentResult,
	CategorySystemAlert,
	CategorySecurityAlert,
	CategoryMarketing,
}

// Channel is a delivery transport.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels enumerates every known channel in a stable order.
var Channels = []Channel{ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush}

// Priority influences suppression: urgent notifications bypass quiet
// hours and do-not-disturb.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the delivery lifecycle state of a notification.
type Status string

const (
	// StatusPending means the notification is scheduled for the future
	// and not yet visible to delivery.
	StatusPending Status = "pending"
	// StatusSent means delivery tasks are enqueued; channel outcomes are
	// still being collected.
	StatusSent Status = "sent"
	// StatusDelivered means at least one channel succeeded and all
	// channels reached a terminal outcome.
	StatusDelivered Status = "delivered"
	// StatusFailed means every channel exhausted its attempts without a
	// single success.
	StatusFailed Status = "failed"
	// StatusExpired means the notification outlived its ExpiresAt before
	// any channel succeeded.
	StatusExpired Status = "expired"
)

// DeliveryAttempt is one channel delivery outcome, appended to the
// notification's history. Final marks the last attempt for a channel;
// successful attempts are always final.
type DeliveryAttempt struct {
	Channel     Channel   `json:"channel"`
	AttemptedAt time.Time `json:"attempted_at"`
	Success     bool      `json:"success"`
	Final       bool      `json:"final"`
	// Reason carries machine-readable context for no-op successes,
	// e.g. "suppressed:quiet_hours" or "expired".
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Notification is the core domain model. Attempts is append-only; the
// rest of the record mutates only through status and read/click marks.
type Notification struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Category     Category          `json:"category"`
	Priority     Priority          `json:"priority"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]any    `json:"data,omitempty"`
	Channels     []Channel         `json:"channels"`
	Status       Status            `json:"status"`
	Attempts     []DeliveryAttempt `json:"attempts,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	ReadAt       *time.Time        `json:"read_at,omitempty"`
	ClickedAt    *time.Time        `json:"clicked_at,omitempty"`
}

// IsExpired reports whether the notification outlived its ExpiresAt.
func (n *Notification) IsExpired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}

// IsRead reports whether the user has read the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// ChannelTerminal reports whether the given channel has reached a
// terminal outcome in the attempt history.
func (n *Notification) ChannelTerminal(ch Channel) bool {
	for _, a := range n.Attempts {
		if a.Channel == ch && (a.Success || a.Final) {
			return true
		}
	}
	return false
}

// AnySuccess reports whether any channel delivery succeeded.
func (n *Notification) AnySuccess() bool {
	for _, a := range n.Attempts {
		if a.Success {
			return true
		}
	}
	return false
}

// DeriveStatus computes the notification-level status from per-channel
// outcomes. It returns the current status unchanged until every target
// channel is terminal.
func (n *Notification) DeriveStatus() Status {
	for _, ch := range n.Channels {
		if !n.ChannelTerminal(ch) {
			return n.Status
		}
	}
	if n.AnySuccess() {
		return StatusDelivered
	}
	if n.IsExpired() {
		return StatusExpired
	}
	return StatusFailed
}
