package notifier

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

type notificationHandler struct {
	engine *notifications.Engine
	log    *slog.Logger
}

type listResponse struct {
	Notifications []notifications.Notification `json:"notifications"`
	Limit         int                          `json:"limit"`
	Offset        int                          `json:"offset"`
}

func (h *notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.engine.List(r.Context(), userID(r), opts)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list notifications", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}
	writeJSON(w, http.StatusOK, listResponse{Notifications: items, Limit: opts.Limit, Offset: opts.Offset})
}

func (h *notificationHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.CountUnread(r.Context(), userID(r))
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to count unread", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count unread")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *notificationHandler) read(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.MarkRead(r.Context(), userID(r), id); err != nil {
		h.writeEngineError(w, r, err, "failed to mark read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandler) readAll(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.MarkAllRead(r.Context(), userID(r)); err != nil {
		h.writeEngineError(w, r, err, "failed to mark all read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandler) click(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.MarkClicked(r.Context(), userID(r), id); err != nil {
		h.writeEngineError(w, r, err, "failed to mark clicked")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Delete(r.Context(), userID(r), id); err != nil {
		h.writeEngineError(w, r, err, "failed to delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandler) getPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.engine.Preferences(r.Context(), userID(r))
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to load preferences", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *notificationHandler) putPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs notifications.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "malformed preferences body")
		return
	}
	prefs.UserID = userID(r)

	if err := h.engine.UpdatePreferences(r.Context(), prefs); err != nil {
		if errors.Is(err, notifications.ErrInvalidPreferences) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.ErrorContext(r.Context(), "failed to update preferences", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *notificationHandler) writeEngineError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	h.log.ErrorContext(r.Context(), msg, logger.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

func listOptionsFromQuery(r *http.Request) (notifications.ListOptions, error) {
	q := r.URL.Query()
	opts := notifications.ListOptions{
		OnlyUnread: q.Get("unread") == "true",
		Search:     q.Get("q"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	for _, c := range q["category"] {
		opts.Categories = append(opts.Categories, notifications.Category(c))
	}
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("since must be RFC3339")
		}
		opts.Since = &ts
	}
	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("until must be RFC3339")
		}
		opts.Until = &ts
	}
	return opts, nil
}
