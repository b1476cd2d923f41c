package eop

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with eop-specific helpers.
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
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

var defaultLogger = NoopLogger()

// WithOp adds an op field to the logger.
func (l *Logger) WithOp(op Op) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", string(op)),
	}
}

// WithType adds an element type field to the logger.
func (l *Logger) WithType(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("type", name),
	}
}

// LogBulk logs the outcome of a construct or destruct pass.
// cells is the number of cells that completed their transition.
func (l *Logger) LogBulk(ctx context.Context, op Op, cells int, err error) {
	if err != nil {
		l.DebugContext(ctx, "lifecycle pass stopped",
			"op", string(op),
			"completed", cells,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "lifecycle pass completed",
			"op", string(op),
			"cells", cells,
		)
	}
}

// LogAllocate logs an owned allocation.
func (l *Logger) LogAllocate(ctx context.Context, typeName string, bytes int64, err error) {
	if err != nil {
		l.DebugContext(ctx, "owned allocation failed",
			"type", typeName,
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "owned allocation completed",
			"type", typeName,
			"bytes", bytes,
		)
	}
}

// LogLeak logs an owned handle that was collected without Release.
func (l *Logger) LogLeak(typeName string, bytes int64) {
	l.Warn("owned handle leaked without release",
		"type", typeName,
		"bytes", bytes,
	)
}

// LogChunkMapped logs an arena chunk mapping.
func (l *Logger) LogChunkMapped(size int) {
	l.Debug("arena chunk mapped", "bytes", size)
}

// LogSnapshot logs a region snapshot encode or decode.
func (l *Logger) LogSnapshot(ctx context.Context, op string, typeName string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "region snapshot failed",
			"op", op,
			"type", typeName,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "region snapshot completed",
			"op", op,
			"type", typeName,
			"bytes", bytes,
		)
	}
}
