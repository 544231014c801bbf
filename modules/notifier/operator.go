package notifier

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

type operatorHandler struct {
	engine *notifications.Engine
	events events.Store
	log    *slog.Logger
}

const defaultOperatorLimit = 50

func operatorLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultOperatorLimit
}

// failedNotifications lists notifications that exhausted every channel.
func (h *operatorHandler) failedNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.ListFailed(r.Context(), operatorLimit(r))
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list failed notifications", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list failed notifications")
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

// deadLetters lists events parked after exhausting their retries.
func (h *operatorHandler) deadLetters(w http.ResponseWriter, r *http.Request) {
	items, err := h.events.ListDeadLetters(r.Context(), operatorLimit(r))
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list dead letters", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}
	if items == nil {
		items = []events.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": items})
}

// requeue puts a dead-lettered event back in front of the retry sweep.
func (h *operatorHandler) requeue(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	if err := h.events.Requeue(r.Context(), externalID); err != nil {
		switch {
		case errors.Is(err, events.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, events.ErrNotDeadLettered):
			writeError(w, http.StatusConflict, "event is not dead-lettered")
		default:
			h.log.ErrorContext(r.Context(), "failed to requeue event",
				logger.ExternalID(externalID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to requeue event")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
