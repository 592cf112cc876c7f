// Package mail renders and delivers account emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"recipeexchange/internal/config"
)

// Mailer delivers the auth workflow emails.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, toEmail, username, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error
	SendEmailChangeEmail(ctx context.Context, toEmail, username, token string) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Link    string
}

var templates = template.Must(template.New("confirm").Parse(`<h2>Welcome to Recipe Exchange, {{.Username}}!</h2>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Confirm Email Address</a></p>
<p>This link expires in 24 hours.</p>
<p>If you did not create an account, you can ignore this email.</p>
`))

func init() {
	template.Must(templates.New("reset").Parse(`<h2>Password Reset Request</h2>
<p>Hi {{.Username}}, we received a request to reset your password.</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>This link expires in 1 hour.</p>
<p>If you did not request a password reset, you can ignore this email.</p>
`))
	template.Must(templates.New("email-change").Parse(`<h2>Confirm your new email address</h2>
<p>Hi {{.Username}}, confirm this address to use it for your Recipe Exchange account.</p>
<p><a href="{{.Link}}">Confirm Email Change</a></p>
<p>This link expires in 24 hours.</p>
<p>If you did not request this change, you can ignore this email.</p>
`))
}

// Composer builds messages with links into the frontend.
type Composer struct {
	baseURL string
}

func NewComposer(frontendBaseURL string) Composer {
	if frontendBaseURL == "" {
		frontendBaseURL = "http://localhost:4200"
	}
	return Composer{baseURL: strings.TrimRight(frontendBaseURL, "/")}
}

func (c Composer) Confirmation(toEmail, username, token string) (Message, error) {
	link := c.link("/confirm-email", url.Values{"token": {token}, "email": {toEmail}})
	return c.render("confirm", "Confirm your Recipe Exchange account", toEmail, username, link)
}

func (c Composer) PasswordReset(toEmail, username, token string) (Message, error) {
	link := c.link("/reset-password", url.Values{"token": {token}, "email": {toEmail}})
	return c.render("reset", "Reset your Recipe Exchange password", toEmail, username, link)
}

func (c Composer) EmailChange(toEmail, username, token string) (Message, error) {
	link := c.link("/confirm-email-change", url.Values{"token": {token}})
	return c.render("email-change", "Confirm your new Recipe Exchange email", toEmail, username, link)
}

func (c Composer) link(path string, q url.Values) string {
	return c.baseURL + path + "?" + q.Encode()
}

func (c Composer) render(name, subject, to, username, link string) (Message, error) {
	var buf bytes.Buffer
	data := struct{ Username, Link string }{username, link}
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String(), Link: link}, nil
}

// New returns the mailer selected by MAIL_DRIVER.
func New(cfg *config.Config) Mailer {
	composer := NewComposer(cfg.FrontendBaseURL)
	if cfg.MailDriver == "smtp" {
		return NewSMTPMailer(composer, SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		})
	}
	return NewLogMailer(composer)
}
