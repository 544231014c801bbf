package notifier

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
)

type streamHandler struct {
	engine *notifications.Engine
	fanout *notifications.FanoutDeliverer
	log    *slog.Logger
}

// backfillLimit caps how many unread notifications are replayed when a
// client connects with ?backfill=true.
const backfillLimit = 50

// stream pushes the caller's notifications over SSE as datastar signal
// patches. The connection lives until the client goes away.
func (h *streamHandler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	sse := datastar.NewSSE(w, r)

	if r.URL.Query().Get("backfill") == "true" {
		unread, err := h.engine.List(ctx, uid, notifications.ListOptions{
			OnlyUnread: true,
			Limit:      backfillLimit,
		})
		if err != nil {
			h.log.ErrorContext(ctx, "failed to backfill unread notifications",
				logger.UserID(uid), logger.Error(err))
		}
		for i := range unread {
			if err := h.push(sse, unread[i]); err != nil {
				return
			}
		}
	}

	sub := h.fanout.Subscribe(ctx, uid)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive():
			if !ok {
				return
			}
			if err := h.push(sse, msg.Data); err != nil {
				return
			}
		}
	}
}

func (h *streamHandler) push(sse *datastar.ServerSentEventGenerator, notif notifications.Notification) error {
	data, err := json.Marshal(map[string]any{"notification": notif})
	if err != nil {
		return err
	}
	return sse.PatchSignals(data)
}
