package mail

import (
	"context"

	"recipeexchange/internal/middleware"
)

// LogMailer writes the links to the application log instead of sending mail.
type LogMailer struct {
	composer Composer
}

func NewLogMailer(composer Composer) *LogMailer {
	return &LogMailer{composer: composer}
}

func (m *LogMailer) SendConfirmationEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.Confirmation(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "confirmation", msg)
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.PasswordReset(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "password_reset", msg)
}

func (m *LogMailer) SendEmailChangeEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.EmailChange(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "email_change", msg)
}

func (m *LogMailer) deliver(ctx context.Context, kind string, msg Message) error {
	middleware.Logger.InfoContext(ctx, "mail not sent (log driver)",
		"kind", kind,
		"to", msg.To,
		"subject", msg.Subject,
		"link", msg.Link,
	)
	return nil
}
