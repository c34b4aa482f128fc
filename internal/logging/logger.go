// Package logging provides structured logging configuration using log/slog.
//
// Loggers obtained through FromContext carry the chi request ID when called
// from an HTTP handler, and the batch ID and file name when called from inside
// a batch run, so every log line for one input file can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	ctxKeyBatchID contextKey = "batch_id"
	ctxKeyFile    contextKey = "file"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithBatch tags ctx with a batch ID for log correlation.
func ContextWithBatch(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ctxKeyBatchID, batchID)
}

// ContextWithFile tags ctx with the input file currently being processed.
func ContextWithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, ctxKeyFile, file)
}

// FromContext returns a logger enriched with request and batch context.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("document rendered", "document", name, "engine", engine)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if ctx == nil {
		return logger
	}

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if id, ok := ctx.Value(ctxKeyBatchID).(string); ok && id != "" {
		logger = logger.With("batch_id", id)
	}
	if file, ok := ctx.Value(ctxKeyFile).(string); ok && file != "" {
		logger = logger.With("file", file)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	fileLogger := logging.WithFields(ctx, "output_dir", dir)
//	fileLogger.Info("file started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
