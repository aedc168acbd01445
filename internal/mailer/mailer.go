// Package mailer delivers outbound email, currently only the verification
// codes issued by the email verification gate.
package mailer

import (
	"context"
	"log/slog"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// LogSender is the development fallback used when SMTP is not configured: it
// surfaces the message through the server log instead of failing the send.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message instead of delivering it.
func (s *LogSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	s.logger.Info("smtp not configured, logging email instead",
		"to", to,
		"subject", subject,
		"body", textBody,
	)
	return nil
}
