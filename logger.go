package ipcwire

import (
	"log/slog"

	"github.com/google/uuid"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default slog logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// connLogger binds one Connection's identity into every line it logs, so
// call sites in conn.go/dispatcher.go stop repeating "topic"/"id" key-value
// pairs on every Warn/Error call. It wraps whatever Logger the Connection
// was configured with (WithLogger or the slog default).
type connLogger struct {
	base  Logger
	id    uuid.UUID
	topic string
}

// withConn wraps base so every call it makes also carries id and topic.
func withConn(base Logger, id uuid.UUID, topic string) Logger {
	return &connLogger{base: base, id: id, topic: topic}
}

func (l *connLogger) prepend(args []any) []any {
	return append([]any{"topic", l.topic, "id", l.id}, args...)
}

func (l *connLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.prepend(args)...) }
func (l *connLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.prepend(args)...) }
func (l *connLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.prepend(args)...) }
func (l *connLogger) Error(msg string, args ...any) { l.base.Error(msg, l.prepend(args)...) }
