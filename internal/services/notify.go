package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
)

// deliver sends a rendered email and logs rather than returns any failure.
// buildErr is the error from rendering msg, if any.
func deliver(ctx context.Context, mailer mail.Mailer, m *metrics.Collector, msg mail.Email, buildErr error, attrs ...any) {
	err := buildErr
	if err == nil {
		err = mailer.Send(ctx, msg)
	}
	m.EmailSent(msg.Kind, err)
	if err != nil {
		args := append([]any{"kind", msg.Kind, "action", "send_email", "error", err}, attrs...)
		slog.ErrorContext(ctx, "email dispatch failed", args...)
	}
}
