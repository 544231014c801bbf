// Package events implements the inbound event gateway for the billing
// provider's webhooks: signature verification, exactly-once dispatch and
// a retry sweep for failed handler runs.
//
// The provider delivers events at-least-once; the Store's unique insert
// on the external event id is the single serialization point that turns
// that into at-most-one handler execution. A redelivered event id is
// acknowledged as a duplicate without touching any handler.
//
// Handler failures never surface to the provider. The event is persisted
// before dispatch, so a failed handler is marked failed and retried by
// the Sweep until the retry ceiling, after which the event parks in
// dead-letter status for operator inspection.
package events
