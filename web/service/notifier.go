package service

import (
	"context"
	"fmt"

	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/logger"
	"github.com/wneessen/go-mail"
)

// Notifier delivers password reset links.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// NewNotifier returns an SMTP notifier when a host is configured, otherwise one that only logs.
func NewNotifier(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" {
		logger.Warning("SMTP host not configured, password reset links will only be logged")
		return LogNotifier{}
	}
	return &MailNotifier{cfg: cfg}
}

type MailNotifier struct {
	cfg config.SMTPConfig
}

func (n *MailNotifier) SendPasswordReset(ctx context.Context, to, link string) error {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject("Postscript password reset")
	m.SetBodyString(mail.TypeTextPlain, resetBody(link))

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	c, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}

// LogNotifier writes the link to the log. Meant for development setups without SMTP.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(_ context.Context, to, link string) error {
	logger.Noticef("password reset link for %s: %s", to, link)
	return nil
}

func resetBody(link string) string {
	return "You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n" +
		"Please click on the following link, or paste this into your browser to complete the process:\n\n" +
		link + "\n\n" +
		"The link is valid for one hour. If you did not request this, please ignore this email and your password will remain unchanged.\n"
}
