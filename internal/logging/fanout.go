package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout sends each record to every sink that accepts its level. The request
// id and user id stored in the context are attached unless the record
// already carries them.
type Fanout struct {
	sinks []slog.Handler
}

func NewFanout(sinks ...slog.Handler) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers to all accepting sinks even when one fails. The returned
// error joins every sink failure.
func (f *Fanout) Handle(ctx context.Context, record slog.Record) error {
	var accepting []slog.Handler
	for _, h := range f.sinks {
		if h.Enabled(ctx, record.Level) {
			accepting = append(accepting, h)
		}
	}
	if len(accepting) == 0 {
		return nil
	}

	record = withRequestScope(ctx, record)
	var errs []error
	for _, h := range accepting {
		if err := h.Handle(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]slog.Handler, len(f.sinks))
	for i, h := range f.sinks {
		sinks[i] = fn(h)
	}
	return &Fanout{sinks: sinks}
}

func withRequestScope(ctx context.Context, record slog.Record) slog.Record {
	var missing []slog.Attr
	if id := RequestID(ctx); id != "" && !hasAttr(record, "request_id") {
		missing = append(missing, slog.String("request_id", id))
	}
	if id := UserID(ctx); id != "" && !hasAttr(record, "user_id") {
		missing = append(missing, slog.String("user_id", id))
	}
	if len(missing) == 0 {
		return record
	}
	record = record.Clone()
	record.AddAttrs(missing...)
	return record
}

func hasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(a slog.Attr) bool {
		found = a.Key == key
		return !found
	})
	return found
}
