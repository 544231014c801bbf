// Package httpserver wraps net/http.Server with graceful shutdown,
// OS signal handling and structured logging. The pipeline server uses it
// to host the webhook ingest endpoint, the notification read API and the
// real-time stream; shutdown waits for in-flight requests (including open
// SSE connections closed by context) up to a configurable grace period.
package httpserver
