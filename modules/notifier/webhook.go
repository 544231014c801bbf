package notifier

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mentorhub/pulse/pkg/billing"
	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/webhook"
)

type webhookHandler struct {
	gateway *events.Gateway
	paddle  *billing.PaddleSource
	log     *slog.Logger
}

func (h *webhookHandler) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gateway.Summary())
}

// readBody buffers the request body up to the gateway's payload
// ceiling, so an oversized POST is rejected without being read in full.
func (h *webhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.gateway.MaxPayloadBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		} else {
			writeError(w, http.StatusBadRequest, "failed to read body")
		}
		return nil, false
	}
	return payload, true
}

// ingestBilling accepts first-party signed events. Duplicates are
// acknowledged with 200 so providers stop redelivering.
func (h *webhookHandler) ingestBilling(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readBody(w, r)
	if !ok {
		return
	}

	sig, err := webhook.FromHeader(r.Header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or malformed signature headers")
		return
	}

	receipt, err := h.gateway.Ingest(r.Context(), payload, sig)
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ingestPaddle verifies and translates a Paddle webhook, then feeds
// the result through the same ingest path.
func (h *webhookHandler) ingestPaddle(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readBody(w, r)
	if !ok {
		return
	}

	translated, err := h.paddle.Translate(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidProviderSignature):
			writeError(w, http.StatusBadRequest, "invalid provider signature")
		case errors.Is(err, billing.ErrUnsupportedProviderEvent):
			// Acknowledged but ignored, so Paddle does not retry
			// event types the pipeline never handles.
			writeJSON(w, http.StatusOK, events.Receipt{})
		case errors.Is(err, billing.ErrMalformedPayload):
			writeError(w, http.StatusBadRequest, "malformed payload")
		default:
			h.log.ErrorContext(r.Context(), "paddle translation failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "translation failed")
		}
		return
	}

	receipt, err := h.gateway.IngestVerified(r.Context(), translated)
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *webhookHandler) writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
	case errors.Is(err, events.ErrEmptyPayload),
		errors.Is(err, events.ErrMalformedPayload),
		errors.Is(err, events.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "event ingest failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
	}
}
