package events

import (
	"context"
	"sync"
)

// Handler processes one event type. Handlers must be idempotent with
// respect to the event payload: the sweep may re-invoke them after a
// partial failure, and re-application must converge to the same state.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Registry maps event types to handlers. Dispatch over the closed
// EventType enum with an explicit unknown arm lives in the Gateway;
// the registry is just the lookup table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[EventType]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[EventType]Handler)}
}

// Register binds a handler to an event type, replacing any previous one.
func (r *Registry) Register(t EventType, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Resolve returns the handler for an event type.
func (r *Registry) Resolve(t EventType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}
