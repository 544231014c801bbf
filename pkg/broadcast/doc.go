// Package broadcast provides a minimal typed publish/subscribe primitive
// used by the real-time notification fan-out.
//
// Each Broadcaster owns its subscriber set explicitly; there is no global
// registry. Subscriptions are tied to a context and clean themselves up on
// cancellation. Publishing never blocks: a subscriber whose buffer is full
// is dropped rather than allowed to stall the publisher, because a live
// notification stream is worthless to a consumer that cannot keep up and
// every notification remains queryable through the read-side API.
//
// Messages reach a single subscriber in publish order, which is what gives
// the pipeline its per-user creation-order delivery guarantee.
package broadcast
