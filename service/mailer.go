package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mail "github.com/go-mail/mail/v2"
)

type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string // public origin used in links
}

// Mailer sends account emails over SMTP.
type Mailer struct {
	dialer  *mail.Dialer
	from    string
	baseURL string
}

func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP_HOST and MAIL_FROM are required")
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &Mailer{
		dialer:  d,
		from:    cfg.From,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// VerificationLink is the URL a user follows to verify their email.
func (m *Mailer) VerificationLink(token string) string {
	return m.baseURL + "/auth/verify?token=" + url.QueryEscape(token)
}

func (m *Mailer) verificationMessage(to, token string) *mail.Message {
	link := m.VerificationLink(token)
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your email")
	msg.SetBody("text/plain", "Welcome to Bookclub.\n\nConfirm your email address by opening:\n"+link+"\n")
	msg.AddAlternative("text/html", `<p>Welcome to Bookclub.</p><p><a href="`+link+`">Verify your email</a></p>`)
	return msg
}

// SendVerification mails the verification link for token to the given address.
func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(m.verificationMessage(to, token))
}
