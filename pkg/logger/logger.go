package logger

import (
	"context"
	"log/slog"
	"os"
)

// contextKey is a private type so values stashed here cannot collide with
// other packages' context keys.
type contextKey string

const (
	// RequestIDKey carries the request ID assigned by the middleware.
	RequestIDKey contextKey = "request_id"
	// TenantKey and UsernameKey carry the authenticated caller.
	TenantKey   contextKey = "tenant"
	UsernameKey contextKey = "username"
	// DocumentIDKey and JobIDKey trace a document through the analysis
	// pipeline, from upload to collected results.
	DocumentIDKey contextKey = "document_id"
	JobIDKey      contextKey = "job_id"
)

// contextAttrs lists the keys WithContext lifts onto the logger, in the
// order they appear on the line.
var contextAttrs = []contextKey{
	RequestIDKey,
	TenantKey,
	UsernameKey,
	DocumentIDKey,
	JobIDKey,
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Init initializes the global slog logger with the given configuration.
// Unknown levels fall back to info.
func Init(cfg *Config) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest stamps a context with the caller's identity so every log
// line produced under it carries the request ID, tenant and username.
func WithRequest(ctx context.Context, requestID, tenant, username string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, TenantKey, tenant)
	return context.WithValue(ctx, UsernameKey, username)
}

// WithDocument stamps a context with the document being processed.
func WithDocument(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, documentID)
}

// WithJob stamps a context with the analysis job driving a document.
func WithJob(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithContext returns a logger carrying every tracing value present on ctx.
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	for _, key := range contextAttrs {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			logger = logger.With(string(key), v)
		}
	}
	return logger
}

// Info logs at info level with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Debug logs at debug level with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Warn logs at warn level with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
