// Package notifications implements the notification engine: preference
// resolution, persistence, delivery scheduling and per-user live
// fan-out.
//
// The Engine is the single entry point. Send resolves the user's
// preferences (creating defaults on first use), intersects the
// requested channels with channel and category settings, persists the
// notification and enqueues one delivery task per effective channel.
// Requests scheduled for the future stay pending and invisible until
// the scheduler releases them.
//
//	engine, err := notifications.NewEngine(storage, prefsStore,
//	    notifications.WithEnqueuer(queueRepo),
//	    notifications.WithDeliverer(fanout),
//	)
//	if err != nil {
//	    return err
//	}
//
//	notif, err := engine.Send(ctx, notifications.Request{
//	    UserID:   "usr_1",
//	    Category: notifications.CategoryPaymentResult,
//	    Title:    "Payment received",
//	    Priority: notifications.PriorityMedium,
//	})
//
// Delivery workers report outcomes through RecordAttempt. The attempt
// history is append-only; once every target channel reaches a terminal
// outcome the notification becomes delivered (at least one success) or
// failed (all exhausted).
//
// Suppression policy: urgent notifications bypass both do-not-disturb
// and quiet hours, every other priority is suppressed during either
// window. Suppression is evaluated at delivery time, not send time, so
// a quiet-hours change takes effect immediately.
//
// FanoutDeliverer feeds live transports. Each user has an independent
// broadcaster delivering notifications in creation order; subscribing
// is cheap and publish with no subscribers is a no-op.
package notifications
