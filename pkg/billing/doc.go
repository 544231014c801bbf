// Package billing applies provider billing events to local domain
// state and emits the resulting user notifications.
//
// Handlers is the event-side entry point: one idempotent handler per
// event type, registered on an events.Registry. Domain writes are
// keyed upserts by provider ids, so the retry sweep can re-run a
// handler after a partial failure and converge to the same state. The
// domain write always commits before the notification goes out.
//
// PaddleSource adapts Paddle webhooks: it verifies the provider
// signature and rewrites the payload into the internal envelope before
// ingestion, keeping provider-specific shapes out of the pipeline.
package billing
