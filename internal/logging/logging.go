// Package logging configures docq's structured logger on top of [log/slog]
// and threads it through request contexts. The serve path builds one logger
// at startup via [New]; handlers and pipeline stages retrieve it with
// [FromContext] so per-request attributes (request IDs, routed collections)
// stay attached.
//
// Environment variables:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// New constructs a [*slog.Logger] for the docq binary from environment
// variables. All output goes to stderr so command stdout (answers, chunk
// counts) stays machine-readable.
func New() *slog.Logger {
	return slog.New(newHandler(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL")))
}

// newHandler builds the slog handler for the given format and level names.
// Unknown values fall back to json/info.
func newHandler(format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if strings.ToLower(format) == "text" {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the [*slog.Logger] stored in ctx.
// If no logger is present it returns [slog.Default] so callers never
// need to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel converts a string to a [slog.Level], defaulting to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
