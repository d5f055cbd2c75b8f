package auth

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// AccountMailer notifies a newly created user of their credentials.
type AccountMailer interface {
	SendAccountCreated(ctx context.Context, email, name, password string) error
}

type SMTPMailer struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	loginURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	LoginURL string
}

// NewSMTPMailer returns nil when SMTP is not configured; callers treat a nil
// mailer as "do not notify".
func NewSMTPMailer(cfg SMTPConfig) AccountMailer {
	if strings.TrimSpace(cfg.Host) == "" || cfg.Port <= 0 || strings.TrimSpace(cfg.From) == "" {
		return nil
	}
	return &SMTPMailer{
		host:     strings.TrimSpace(cfg.Host),
		port:     cfg.Port,
		user:     strings.TrimSpace(cfg.User),
		pass:     cfg.Pass,
		from:     strings.TrimSpace(cfg.From),
		loginURL: strings.TrimSpace(cfg.LoginURL),
	}
}

func (m *SMTPMailer) SendAccountCreated(ctx context.Context, email, name, password string) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for you on the question bank.\nEmail: %s\nTemporary password: %s\n", name, email, password)
	if m.loginURL != "" {
		body += "Sign in at " + m.loginURL + " and change your password.\n"
	}
	msg := "From: " + m.from + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: Your question bank account\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body + "\r\n"

	var a smtp.Auth
	if m.user != "" {
		a = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, a, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send account notice: %w", err)
	}
	return nil
}
