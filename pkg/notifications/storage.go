package notifications

import (
	"context"
	"time"
)

// Storage handles notification persistence. User-facing reads are
// scoped by user id; delivery-side mutations address notifications by
// id alone because workers do not carry the user context.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification owned by the user.
	Get(ctx context.Context, userID, notifID string) (*Notification, error)

	// GetByID retrieves a notification by id alone. Delivery side.
	GetByID(ctx context.Context, notifID string) (*Notification, error)

	// List returns the user's notifications, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// MarkRead sets the read timestamp. Already-read ids are left as is.
	MarkRead(ctx context.Context, userID string, notifIDs ...string) error

	// MarkClicked sets the clicked timestamp. Clicking does not imply
	// reading; the two marks are independent.
	MarkClicked(ctx context.Context, userID, notifID string) error

	// Delete removes notification(s). Missing ids are not an error.
	Delete(ctx context.Context, userID string, notifIDs ...string) error

	// CountUnread returns the user's unread count.
	CountUnread(ctx context.Context, userID string) (int, error)

	// UpdateStatus transitions a notification's lifecycle status.
	UpdateStatus(ctx context.Context, notifID string, status Status) error

	// AppendAttempt appends one delivery attempt to the history and
	// returns the updated notification.
	AppendAttempt(ctx context.Context, notifID string, attempt DeliveryAttempt) (*Notification, error)

	// ListByStatus returns notifications in a given status across all
	// users, oldest first. Operator surface.
	ListByStatus(ctx context.Context, status Status, limit int) ([]Notification, error)

	// ListDueScheduled returns pending notifications whose ScheduledFor
	// is at or before the given instant.
	ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]Notification, error)
}

// PreferencesStore persists per-user delivery preferences.
type PreferencesStore interface {
	// Get returns the user's preferences or ErrPreferencesNotFound.
	Get(ctx context.Context, userID string) (*Preferences, error)

	// Save upserts the user's preferences.
	Save(ctx context.Context, prefs Preferences) error
}

// ListOptions filters and paginates notification listings.
type ListOptions struct {
	Limit      int        // maximum rows to return (0 means storage default)
	Offset     int        // rows to skip
	OnlyUnread bool       // only notifications without a read mark
	Categories []Category // restrict to these categories
	Since      *time.Time // created at or after
	Until      *time.Time // created before
	Search     string     // case-insensitive substring over title and body
}
