package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/taskory/taskory/internal/config"
)

// Sender performs one delivery attempt. Implementations must be safe for
// concurrent use; the dispatcher calls Send from several workers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes the message to the structured log instead of delivering
// it. This is the development default, so the confirmation link is readable
// straight from the service output.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "outbound mail",
		"message_id", msg.ID,
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		host := cfg.SMTPAddr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, host)
	}
	return &SMTPSender{addr: cfg.SMTPAddr, from: cfg.MailFrom, auth: auth}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.from, msg.To, msg.Subject, msg.Body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// NewSenderFromConfig picks the delivery backend from MAILER_DRIVER.
func NewSenderFromConfig(cfg *config.Config, logger *slog.Logger) Sender {
	if cfg.MailerDriver == config.MailerDriverSMTP {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger)
}
