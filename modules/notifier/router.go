package notifier

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/mentorhub/pulse/pkg/billing"
	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/notifications"
)

// RouterOptions wires the module's dependencies. Gateway and Engine
// are required; Paddle, Fanout and Events enable their routes when
// provided.
type RouterOptions struct {
	Gateway *events.Gateway
	Engine  *notifications.Engine

	// Paddle enables POST /webhooks/paddle for provider-native
	// payloads.
	Paddle *billing.PaddleSource

	// Fanout enables the live GET /stream endpoint.
	Fanout *notifications.FanoutDeliverer

	// Events enables the operator dead-letter routes.
	Events events.Store

	Logger *slog.Logger
}

// Router assembles the notifier HTTP surface.
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	wh := &webhookHandler{gateway: opts.Gateway, paddle: opts.Paddle, log: log}
	nh := &notificationHandler{engine: opts.Engine, log: log}
	sh := &streamHandler{engine: opts.Engine, fanout: opts.Fanout, log: log}
	oh := &operatorHandler{engine: opts.Engine, events: opts.Events, log: log}

	r := chi.NewRouter()

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/billing", wh.summary)
		r.Post("/billing", wh.ingestBilling)
		if opts.Paddle != nil {
			r.Post("/paddle", wh.ingestPaddle)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", nh.list)
			r.Get("/unread-count", nh.unreadCount)
			r.Post("/read-all", nh.readAll)
			r.Post("/{id}/read", nh.read)
			r.Post("/{id}/click", nh.click)
			r.Delete("/{id}", nh.delete)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", nh.getPreferences)
			r.Put("/", nh.putPreferences)
		})

		if opts.Fanout != nil {
			r.Get("/stream", sh.stream)
		}
	})

	// Operator routes sit on a separate prefix so the fronting proxy
	// can gate them independently.
	r.Route("/admin", func(r chi.Router) {
		r.Get("/notifications/failed", oh.failedNotifications)
		if opts.Events != nil {
			r.Get("/events/dead-letter", oh.deadLetters)
			r.Post("/events/dead-letter/{externalID}/requeue", oh.requeue)
		}
	})

	return r
}
