// Package notifier exposes the event pipeline over HTTP: provider
// webhook intake, the per-user notification inbox and preference
// endpoints, a live SSE stream, and operator views over failed
// deliveries and dead-lettered events.
//
// The module assumes an authenticating proxy in front of it and reads
// the caller's identity from a trusted header. Mount it on a chi
// router:
//
//	r := chi.NewRouter()
//	r.Mount("/", notifier.Router(notifier.RouterOptions{
//		Gateway: gateway,
//		Engine:  engine,
//		Fanout:  fanout,
//		Events:  store,
//	}))
package notifier
