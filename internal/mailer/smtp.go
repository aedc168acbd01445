package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/confly-app/apiserver/config"
	mail "github.com/wneessen/go-mail"
)

// SMTPSender delivers email through a configured SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender constructs an SMTP sender from config.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

// Send delivers one email with a plain-text body and an HTML alternative.
func (s *SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}
