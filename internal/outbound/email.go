package outbound

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"teamflow/internal/config"
	"teamflow/internal/logger"
)

// EmailSender delivers SEND_EMAIL actions over SMTP. When no SMTP host is
// configured the sender logs instead of failing, so rules with email actions
// keep working in development.
type EmailSender struct {
	cfg    config.EmailConfig
	logger logger.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(cfg config.EmailConfig, log logger.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: log,
		send:   smtp.SendMail,
	}
}

func (e *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if e.cfg.SMTPHost == "" {
		e.logger.InfowCtx(ctx, "SMTP not configured, logging email instead of sending",
			"to", to,
			"subject", subject,
		)
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	if err := e.send(addr, auth, e.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.DebugwCtx(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}
