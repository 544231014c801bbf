// Package logger builds configured slog.Logger instances and provides
// typed attribute helpers for the pipeline's common log fields (user ids,
// event ids, notification ids, delivery channels).
//
// Components never construct loggers themselves; they accept a
// *slog.Logger through an option and default to slog.Default(). The
// binary entrypoint calls New once and passes the result down.
package logger
