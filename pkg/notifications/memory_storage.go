package notifications

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for tests and local
// development. Notifications are kept per user plus a flat id index for
// delivery-side access.
type MemoryStorage struct {
	mu     sync.RWMutex
	byUser map[string][]*Notification
	byID   map[string]*Notification
}

// NewMemoryStorage creates an empty in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byUser: make(map[string][]*Notification),
		byID:   make(map[string]*Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" || notif.UserID == "" {
		return ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}

	cp := notif
	s.byUser[notif.UserID] = append(s.byUser[notif.UserID], &cp)
	s.byID[notif.ID] = &cp
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[notifID]
	if !ok || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[notifID]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.byUser[userID] {
		// Pending scheduled notifications are not visible to the user yet.
		if n.Status == StatusPending {
			continue
		}
		if !matches(n, opts) {
			continue
		}
		out = append(out, *n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Notification{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

func matches(n *Notification, opts ListOptions) bool {
	if opts.OnlyUnread && n.IsRead() {
		return false
	}
	if len(opts.Categories) > 0 {
		found := false
		for _, c := range opts.Categories {
			if n.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && !n.CreatedAt.Before(*opts.Until) {
		return false
	}
	if opts.Search != "" {
		needle := strings.ToLower(opts.Search)
		if !strings.Contains(strings.ToLower(n.Title), needle) &&
			!strings.Contains(strings.ToLower(n.Body), needle) {
			return false
		}
	}
	return true
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range notifIDs {
		n, ok := s.byID[id]
		if !ok || n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			t := now
			n.ReadAt = &t
		}
	}
	return nil
}

func (s *MemoryStorage) MarkClicked(ctx context.Context, userID, notifID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[notifID]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	if n.ClickedAt == nil {
		now := time.Now().UTC()
		n.ClickedAt = &now
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(notifIDs))
	for _, id := range notifIDs {
		if n, ok := s.byID[id]; ok && n.UserID == userID {
			drop[id] = struct{}{}
			delete(s.byID, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	kept := s.byUser[userID][:0]
	for _, n := range s.byUser[userID] {
		if _, gone := drop[n.ID]; !gone {
			kept = append(kept, n)
		}
	}
	s.byUser[userID] = kept
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if n.Status != StatusPending && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) UpdateStatus(ctx context.Context, notifID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[notifID]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = status
	return nil
}

func (s *MemoryStorage) AppendAttempt(ctx context.Context, notifID string, attempt DeliveryAttempt) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[notifID]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n.Attempts = append(n.Attempts, attempt)
	cp := *n
	return &cp, nil
}

func (s *MemoryStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.byID {
		if n.Status == status {
			out = append(out, *n)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.byID {
		if n.Status != StatusPending || n.ScheduledFor == nil {
			continue
		}
		if n.ScheduledFor.After(before) {
			continue
		}
		out = append(out, *n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(*out[j].ScheduledFor)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryPreferences is an in-memory PreferencesStore.
type MemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryPreferences creates an empty in-memory preferences store.
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{prefs: make(map[string]Preferences)}
}

func (s *MemoryPreferences) Get(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	cp := p
	return &cp, nil
}

func (s *MemoryPreferences) Save(ctx context.Context, prefs Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefs.UserID] = prefs
	return nil
}
