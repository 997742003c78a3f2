package dtable

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with dtable-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// LogCompile logs a compilation.
func (l *Logger) LogCompile(ctx context.Context, rules, attributes int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compile failed",
			"rules", rules,
			"attributes", attributes,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "compile completed",
		"rules", rules,
		"attributes", attributes,
		"duration", duration,
	)
}

// LogClassify logs a classification. Failures are logged at debug level
// since they are usage errors of the caller.
func (l *Logger) LogClassify(ctx context.Context, matches uint64, err error) {
	if err != nil {
		l.DebugContext(ctx, "classify failed", "error", err)
		return
	}
	l.DebugContext(ctx, "classify completed", "matches", matches)
}

// LogPublish logs the publication of a table snapshot.
func (l *Logger) LogPublish(ctx context.Context, version uint64, rules int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"rules", rules,
			"bytes", bytes,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "table published",
		"version", version,
		"rules", rules,
		"bytes", bytes,
	)
}

// LogSave logs a table store write.
func (l *Logger) LogSave(ctx context.Context, name string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"table", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "table saved",
		"table", name,
		"bytes", bytes,
	)
}

// LogLoad logs a table store read.
func (l *Logger) LogLoad(ctx context.Context, name string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"table", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "table loaded",
		"table", name,
		"bytes", bytes,
	)
}
