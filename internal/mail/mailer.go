package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Email is one outbound transactional message.
type Email struct {
	Kind    string
	To      string
	Subject string
	HTML    string
}

//go:generate mockgen -source=mailer.go -destination=mailmock/mailer.go -package=mailmock

// Mailer dispatches transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ResendMailer delivers mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend: send %s email: %w", email.Kind, err)
	}
	slog.Info("email sent", "kind", email.Kind, "resend_id", sent.Id)
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when no
// RESEND_API_KEY is configured so codes are still reachable in development.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	slog.Info("email not sent (no provider configured)",
		"kind", email.Kind, "to", email.To, "subject", email.Subject, "body", email.HTML)
	return nil
}

// New picks the Resend mailer when an API key is present.
func New(apiKey, from string) Mailer {
	if apiKey == "" {
		return NewLogMailer()
	}
	return NewResendMailer(apiKey, from)
}
