package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/webhook"
)

// Receipt is the outcome of one ingest call.
type Receipt struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger for the Gateway.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// Gateway authenticates, deduplicates and dispatches inbound events.
type Gateway struct {
	cfg      Config
	store    Store
	registry *Registry
	log      *slog.Logger
}

// NewGateway creates the inbound event gateway.
func NewGateway(cfg Config, store Store, registry *Registry, opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 1 << 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	g := &Gateway{
		cfg:      cfg,
		store:    store,
		registry: registry,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Ingest verifies, persists and dispatches one provider event.
//
// Verification failures return before any state is touched. The store
// insert is the idempotency barrier: the loser of a concurrent race for
// the same external id observes ErrDuplicateEvent and returns a duplicate
// receipt without running any handler. Handler errors do not fail the
// ingest; the event is marked failed and the sweep retries it.
func (g *Gateway) Ingest(ctx context.Context, payload []byte, sig webhook.Signature) (Receipt, error) {
	if len(payload) == 0 {
		return Receipt{}, ErrEmptyPayload
	}
	if int64(len(payload)) > g.cfg.MaxPayloadBytes {
		return Receipt{}, ErrPayloadTooLarge
	}

	if err := webhook.Verify(g.cfg.Secret, payload, sig, g.cfg.SignatureMaxAge); err != nil {
		return Receipt{}, errors.Join(ErrInvalidSignature, err)
	}

	return g.ingest(ctx, payload)
}

// IngestVerified persists and dispatches a payload whose provider
// signature was already checked upstream, as with translated Paddle
// webhooks. Size limits still apply.
func (g *Gateway) IngestVerified(ctx context.Context, payload []byte) (Receipt, error) {
	if len(payload) == 0 {
		return Receipt{}, ErrEmptyPayload
	}
	if int64(len(payload)) > g.cfg.MaxPayloadBytes {
		return Receipt{}, ErrPayloadTooLarge
	}

	return g.ingest(ctx, payload)
}

func (g *Gateway) ingest(ctx context.Context, payload []byte) (Receipt, error) {
	env, err := ParseEnvelope(payload)
	if err != nil {
		return Receipt{}, err
	}

	evt := &Event{
		ID:         uuid.New(),
		ExternalID: env.EventID,
		Type:       Normalize(env.EventType),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
		Status:     StatusUnprocessed,
	}

	if err := g.store.Insert(ctx, evt); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			g.log.DebugContext(ctx, "duplicate event ignored",
				logger.ExternalID(evt.ExternalID),
				logger.EventType(string(evt.Type)))
			return Receipt{Accepted: true, Duplicate: true}, nil
		}
		return Receipt{}, fmt.Errorf("failed to persist event %s: %w", evt.ExternalID, err)
	}

	g.dispatch(ctx, *evt)
	return Receipt{Accepted: true}, nil
}

// dispatch runs the handler for a stored event and records the outcome.
// Shared by Ingest (first attempt) and Sweep (retries).
func (g *Gateway) dispatch(ctx context.Context, evt Event) {
	if evt.Type == EventTypeUnknown {
		env, _ := ParseEnvelope(evt.Payload)
		g.log.WarnContext(ctx, "unhandled event type accepted",
			logger.ExternalID(evt.ExternalID),
			slog.String("raw_type", env.EventType))
		g.mark(ctx, g.store.MarkSkipped(ctx, evt.ExternalID, "unknown event type: "+env.EventType), evt)
		return
	}

	handler, ok := g.registry.Resolve(evt.Type)
	if !ok {
		g.log.WarnContext(ctx, "no handler registered for event type",
			logger.ExternalID(evt.ExternalID),
			logger.EventType(string(evt.Type)))
		g.mark(ctx, g.store.MarkSkipped(ctx, evt.ExternalID, "no handler registered"), evt)
		return
	}

	err := handler.Handle(ctx, evt)
	switch {
	case err == nil:
		g.mark(ctx, g.store.MarkProcessed(ctx, evt.ExternalID), evt)
	case errors.Is(err, ErrSkipEvent):
		g.log.WarnContext(ctx, "event skipped by handler",
			logger.ExternalID(evt.ExternalID),
			logger.EventType(string(evt.Type)),
			logger.Error(err))
		g.mark(ctx, g.store.MarkSkipped(ctx, evt.ExternalID, err.Error()), evt)
	default:
		g.log.ErrorContext(ctx, "event handler failed",
			logger.ExternalID(evt.ExternalID),
			logger.EventType(string(evt.Type)),
			logger.RetryCount(int(evt.RetryCount)),
			logger.Error(err))
		g.mark(ctx, g.store.MarkFailed(ctx, evt.ExternalID, err.Error()), evt)
	}
}

func (g *Gateway) mark(ctx context.Context, err error, evt Event) {
	if err != nil {
		g.log.ErrorContext(ctx, "failed to update event status",
			logger.ExternalID(evt.ExternalID),
			logger.Error(err))
	}
}

// MaxPayloadBytes reports the configured payload ceiling so transports
// can bound body reads before handing payloads to Ingest.
func (g *Gateway) MaxPayloadBytes() int64 {
	return g.cfg.MaxPayloadBytes
}

// Summary describes the gateway's effective configuration for the
// health endpoint. The secret itself is never exposed.
func (g *Gateway) Summary() map[string]any {
	return map[string]any{
		"max_payload_bytes": g.cfg.MaxPayloadBytes,
		"signature_max_age": g.cfg.SignatureMaxAge.String(),
		"max_retries":       g.cfg.MaxRetries,
		"secret_configured": g.cfg.Secret != "",
	}
}
