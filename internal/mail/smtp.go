package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPOptions configures an SMTPMailer.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers HTML mail through an SMTP relay.
type SMTPMailer struct {
	composer Composer
	opts     SMTPOptions
	send     sendFunc
}

func NewSMTPMailer(composer Composer, opts SMTPOptions) *SMTPMailer {
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.From == "" {
		opts.From = "noreply@example.com"
	}
	if opts.FromName == "" {
		opts.FromName = "Recipe Exchange"
	}
	return &SMTPMailer{composer: composer, opts: opts, send: smtp.SendMail}
}

func (m *SMTPMailer) SendConfirmationEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.Confirmation(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.PasswordReset(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *SMTPMailer) SendEmailChangeEmail(ctx context.Context, toEmail, username, token string) error {
	msg, err := m.composer.EmailChange(toEmail, username, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *SMTPMailer) deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))
	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}
	if err := m.send(addr, auth, m.opts.From, []string{msg.To}, m.buildMIME(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) buildMIME(msg Message) []byte {
	var buf bytes.Buffer
	from := mime.QEncoding.Encode("utf-8", m.opts.FromName) + " <" + m.opts.From + ">"
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}
