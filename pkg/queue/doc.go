// Package queue executes per-channel notification delivery with retries.
//
// Each effective channel of a sent notification becomes one Task. A
// Worker pool claims due tasks (Claim is atomic, so concurrent workers
// never double-deliver), runs the channel adapter under a bounded
// timeout, and reports the outcome to the notification engine as a
// delivery attempt.
//
// A failed delivery does not block a worker slot while it waits: the
// task is requeued with an exponential-backoff due time and the slot
// moves on. Once a task exhausts its retries the channel is recorded
// as terminally failed and the engine derives the notification-level
// status.
//
// The Scheduler is a companion sweep that releases notifications whose
// scheduled time has arrived, turning them into delivery tasks.
package queue
