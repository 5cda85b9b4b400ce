package logging

import (
	"context"
	"log/slog"
	"os"
)

// handlerOptions derives the slog options from LOG_LEVEL: "debug" lowers
// the gate, anything else runs at info. Source locations are attached when
// the level admits warnings, which in practice means always — the cost
// only matters for debug spew that is off by default.
func handlerOptions() *slog.HandlerOptions {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelWarn,
	}
}

// NewLogger builds the production logger: JSON to stdout, level from
// LOG_LEVEL.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOptions()))
}

// NewTextLogger builds the development logger: human-readable text output,
// same level handling.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOptions()))
}

type sourceIDKey string

const sourceIDContextKey sourceIDKey = "source_id"

// WithSourceIDValue stores a source ID on the context for WithSourceID to
// pick up further down the call chain.
func WithSourceIDValue(ctx context.Context, sourceID string) context.Context {
	return context.WithValue(ctx, sourceIDContextKey, sourceID)
}

// WithSourceID attaches the context's source ID to the logger, so every
// line emitted while fetching one source correlates across strategy,
// cache, and scheduler boundaries. Without a source ID on the context the
// logger passes through unchanged.
func WithSourceID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	sourceID, ok := ctx.Value(sourceIDContextKey).(string)
	if !ok || sourceID == "" {
		return logger
	}
	return logger.With("source_id", sourceID)
}

// WithFields attaches a map of structured fields to the logger.
func WithFields(logger *slog.Logger, fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return logger.With(args...)
}

type contextKey string

const loggerContextKey contextKey = "logger"

// WithLogger stores a logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext retrieves the context's logger, falling back to the process
// default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
