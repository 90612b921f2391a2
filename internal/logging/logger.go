package logging

import (
	"context"
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(NewFanout(stdoutHandler())))
}

// SetupWithStore adds store to the stdout handler so ERROR records are
// persisted as well.
func SetupWithStore(store *PGHandler) {
	slog.SetDefault(slog.New(NewFanout(stdoutHandler(), store)))
}

func stdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

type (
	requestIDKey struct{}
	userIDKey    struct{}
)

// WithRequestID returns ctx tagged with the HTTP request id. Records logged
// with the *Context variants of slog pick it up as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithUserID returns ctx tagged with the authenticated user's id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the user id stored in ctx, if any.
func UserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
