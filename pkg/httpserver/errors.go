package httpserver

import "errors"

var (
	// ErrStart indicates the server failed to start or was started twice.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown indicates graceful shutdown did not complete.
	ErrShutdown = errors.New("httpserver: shutdown failed")
)
