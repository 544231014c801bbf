package events

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*Event)}
}

func (s *MemoryStore) Insert(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ExternalID]; exists {
		return ErrDuplicateEvent
	}

	cp := *event
	s.events[event.ExternalID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, externalID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[externalID]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *evt
	return &cp, nil
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, externalID string) error {
	return s.update(externalID, func(e *Event) {
		e.Status = StatusProcessed
		e.LastError = nil
	})
}

func (s *MemoryStore) MarkSkipped(ctx context.Context, externalID, reason string) error {
	return s.update(externalID, func(e *Event) {
		e.Status = StatusSkipped
		e.LastError = &reason
	})
}

func (s *MemoryStore) MarkFailed(ctx context.Context, externalID, errMsg string) error {
	return s.update(externalID, func(e *Event) {
		e.Status = StatusFailed
		e.RetryCount++
		e.LastError = &errMsg
	})
}

func (s *MemoryStore) MarkDeadLetter(ctx context.Context, externalID string) error {
	return s.update(externalID, func(e *Event) {
		e.Status = StatusDeadLetter
	})
}

func (s *MemoryStore) ListFailed(ctx context.Context, belowRetries int8, limit int) ([]Event, error) {
	return s.list(StatusFailed, limit, func(e *Event) bool {
		return e.RetryCount < belowRetries
	})
}

func (s *MemoryStore) ListDeadLetters(ctx context.Context, limit int) ([]Event, error) {
	return s.list(StatusDeadLetter, limit, nil)
}

func (s *MemoryStore) Requeue(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, ok := s.events[externalID]
	if !ok {
		return ErrEventNotFound
	}
	if evt.Status != StatusDeadLetter {
		return ErrNotDeadLettered
	}
	evt.Status = StatusFailed
	evt.RetryCount = 0
	evt.LastError = nil
	return nil
}

func (s *MemoryStore) update(externalID string, fn func(*Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, ok := s.events[externalID]
	if !ok {
		return ErrEventNotFound
	}
	fn(evt)
	return nil
}

func (s *MemoryStore) list(status Status, limit int, keep func(*Event) bool) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, evt := range s.events {
		if evt.Status != status {
			continue
		}
		if keep != nil && !keep(evt) {
			continue
		}
		out = append(out, *evt)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
