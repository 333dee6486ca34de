package notify

import (
	"context"
	"fmt"

	mail "gopkg.in/mail.v2"

	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/telemetry"
)

// Mailer sends password reset emails
type Mailer interface {
	SendResetEmail(ctx context.Context, email string, token int) error
}

// SMTPMailer sends mail over SMTP
type SMTPMailer struct {
	cfg    *config.EmailConfig
	dialer *mail.Dialer
}

// NewSMTPMailer creates a mailer against the configured SMTP server
func NewSMTPMailer(cfg *config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendResetEmail sends the password reset code to the user
func (m *SMTPMailer) SendResetEmail(ctx context.Context, email string, token int) error {
	_, span := telemetry.StartSpan(ctx, "smtp.send_reset_email")
	defer span.End()

	body := fmt.Sprintf(
		"We heard that you lost your Clout9 password. Sorry about that!\n\n\n"+
			"But don’t worry! You can use the following code to reset your password:\n\n"+
			"Code is:   %d"+
			"\n\nIf you don’t use this code within 10 minutes, it will expire."+
			"\n\n\n\n\nThanks\nThe Clout9 Team",
		token,
	)

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Please reset your password")
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}
