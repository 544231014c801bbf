package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/logger"
)

// Request describes a notification to send. Empty Channels means every
// channel the user has enabled.
type Request struct {
	UserID       string         `json:"user_id"`
	Category     Category       `json:"category"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Data         map[string]any `json:"data,omitempty"`
	Priority     Priority       `json:"priority"`
	Channels     []Channel      `json:"channels,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

// Engine orchestrates the notification lifecycle: preference
// resolution, persistence, delivery task scheduling and terminal status
// derivation.
type Engine struct {
	storage   Storage
	prefs     PreferencesStore
	enqueuer  TaskEnqueuer
	deliverer Deliverer
	log       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithDeliverer attaches a live fan-out deliverer.
func WithDeliverer(d Deliverer) EngineOption {
	return func(e *Engine) {
		if d != nil {
			e.deliverer = d
		}
	}
}

// WithEnqueuer attaches the delivery task queue.
func WithEnqueuer(q TaskEnqueuer) EngineOption {
	return func(e *Engine) {
		e.enqueuer = q
	}
}

// NewEngine creates a notification engine.
func NewEngine(storage Storage, prefs PreferencesStore, opts ...EngineOption) (*Engine, error) {
	if storage == nil || prefs == nil {
		return nil, ErrStorageNil
	}

	e := &Engine{
		storage:   storage,
		prefs:     prefs,
		deliverer: NoopDeliverer{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Send resolves the user's preferences, persists the notification and
// schedules delivery. A future ScheduledFor keeps the notification
// pending and invisible to delivery until the scheduler releases it.
// Preference filtering that leaves no channel returns
// ErrNoChannelsAvailable and persists nothing.
func (e *Engine) Send(ctx context.Context, req Request) (*Notification, error) {
	if req.UserID == "" || req.Title == "" {
		return nil, ErrInvalidRequest
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}

	prefs, err := e.preferencesFor(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	channels := prefs.EffectiveChannels(req.Channels, req.Category)
	if len(channels) == 0 {
		return nil, ErrNoChannelsAvailable
	}

	now := time.Now().UTC()
	notif := Notification{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Category:     req.Category,
		Priority:     req.Priority,
		Title:        req.Title,
		Body:         req.Body,
		Data:         req.Data,
		Channels:     channels,
		Status:       StatusSent,
		CreatedAt:    now,
		ScheduledFor: req.ScheduledFor,
		ExpiresAt:    req.ExpiresAt,
	}

	scheduled := req.ScheduledFor != nil && req.ScheduledFor.After(now)
	if scheduled {
		notif.Status = StatusPending
	}

	if err := e.storage.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if !scheduled {
		e.release(ctx, notif)
	}

	return &notif, nil
}

// release enqueues one delivery task per channel and pushes the
// notification to live subscribers. Failures are logged, never
// propagated: the notification is persisted and the scheduler sweeps
// will pick up the slack.
func (e *Engine) release(ctx context.Context, notif Notification) {
	if e.enqueuer != nil {
		for _, ch := range notif.Channels {
			if err := e.enqueuer.Enqueue(ctx, notif.ID, ch, time.Now().UTC()); err != nil {
				e.log.ErrorContext(ctx, "failed to enqueue delivery task",
					logger.NotificationID(notif.ID),
					logger.Channel(string(ch)),
					logger.Error(err))
			}
		}
	}

	if err := e.deliverer.Deliver(ctx, notif); err != nil {
		e.log.WarnContext(ctx, "live delivery failed, notification stored",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Error(err))
	}
}

// ReleaseScheduled moves due pending notifications to sent and starts
// their delivery. Called by the scheduler sweep.
func (e *Engine) ReleaseScheduled(ctx context.Context, now time.Time) (int, error) {
	due, err := e.storage.ListDueScheduled(ctx, now, 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list due notifications: %w", err)
	}

	released := 0
	for _, notif := range due {
		if err := e.storage.UpdateStatus(ctx, notif.ID, StatusSent); err != nil {
			e.log.ErrorContext(ctx, "failed to release scheduled notification",
				logger.NotificationID(notif.ID),
				logger.Error(err))
			continue
		}
		notif.Status = StatusSent
		e.release(ctx, notif)
		released++
	}
	return released, nil
}

// RecordAttempt appends a channel delivery outcome and derives the
// notification-level status once every channel is terminal.
func (e *Engine) RecordAttempt(ctx context.Context, notifID string, attempt DeliveryAttempt) (*Notification, error) {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}
	if attempt.Success {
		attempt.Final = true
	}

	notif, err := e.storage.AppendAttempt(ctx, notifID, attempt)
	if err != nil {
		return nil, err
	}

	derived := notif.DeriveStatus()
	if derived != notif.Status {
		if err := e.storage.UpdateStatus(ctx, notifID, derived); err != nil {
			return nil, fmt.Errorf("failed to update notification status: %w", err)
		}
		notif.Status = derived
	}
	return notif, nil
}

// GetForDelivery loads a notification by id alone, for workers that do
// not carry the user context.
func (e *Engine) GetForDelivery(ctx context.Context, notifID string) (*Notification, error) {
	return e.storage.GetByID(ctx, notifID)
}

func (e *Engine) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	return e.storage.Get(ctx, userID, notifID)
}

func (e *Engine) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return e.storage.List(ctx, userID, opts)
}

func (e *Engine) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	return e.storage.MarkRead(ctx, userID, notifIDs...)
}

func (e *Engine) MarkClicked(ctx context.Context, userID, notifID string) error {
	return e.storage.MarkClicked(ctx, userID, notifID)
}

// MarkAllRead marks every unread notification as read. Best effort: a
// notification created mid-call may stay unread.
func (e *Engine) MarkAllRead(ctx context.Context, userID string) error {
	unread, err := e.storage.List(ctx, userID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	return e.storage.MarkRead(ctx, userID, ids...)
}

func (e *Engine) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	return e.storage.Delete(ctx, userID, notifIDs...)
}

func (e *Engine) CountUnread(ctx context.Context, userID string) (int, error) {
	return e.storage.CountUnread(ctx, userID)
}

// ListFailed returns notifications whose every channel exhausted its
// attempts. Operator surface.
func (e *Engine) ListFailed(ctx context.Context, limit int) ([]Notification, error) {
	return e.storage.ListByStatus(ctx, StatusFailed, limit)
}

// Preferences returns the user's preferences, creating and persisting
// defaults on first use.
func (e *Engine) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	return e.preferencesFor(ctx, userID)
}

// UpdatePreferences validates and saves new preferences for the user.
func (e *Engine) UpdatePreferences(ctx context.Context, prefs Preferences) error {
	if prefs.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidPreferences)
	}
	if err := prefs.Validate(); err != nil {
		return err
	}
	prefs.UpdatedAt = time.Now().UTC()
	return e.prefs.Save(ctx, prefs)
}

func (e *Engine) preferencesFor(ctx context.Context, userID string) (*Preferences, error) {
	prefs, err := e.prefs.Get(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, ErrPreferencesNotFound) {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	defaults := DefaultPreferences(userID)
	if err := e.prefs.Save(ctx, defaults); err != nil {
		return nil, fmt.Errorf("failed to persist default preferences: %w", err)
	}
	return &defaults, nil
}
