// Package channels delivers notifications to concrete transports.
//
// Each transport is an Adapter that handles exactly one channel. The
// Dispatcher owns the adapter set, resolves recipient contact details
// through a Directory and routes every delivery attempt to the right
// adapter, which makes it a drop-in deliverer for the task queue.
//
// Included adapters:
//
//   - EmailAdapter sends transactional email through Postmark.
//   - SMSAdapter and PushAdapter hand the message to a downstream
//     provider relay over signed HTTP.
//   - InAppAdapter accepts immediately; in-app messages are read from
//     storage and streamed separately.
//
// Usage:
//
//	dispatcher, err := channels.NewDispatcher(directory,
//		channels.NewInAppAdapter(),
//		emailAdapter,
//	)
//	if err != nil {
//		return err
//	}
//	worker, err := queue.NewWorker(cfg, repo, engine, dispatcher)
package channels
