package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"symposium/internal/dto"
)

var ErrUnknownKind = errors.New("unknown notification kind")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type Mailer struct {
	cfg Config
	log *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Mailer{cfg: cfg, log: log}
}

// Compose renders the subject and plain-text body for msg.
func Compose(msg dto.NotificationMessage) (subject, body string, err error) {
	name := msg.Name
	if name == "" {
		name = "participant"
	}
	greeting := fmt.Sprintf("Hello %s,\n\n", name)

	switch msg.Kind {
	case dto.NotifyWelcome:
		subject = "Welcome to the symposium"
		body = greeting + "Your account has been created. You can now register for events and workshops."
	case dto.NotifyRegistrationCreated:
		subject = fmt.Sprintf("Registration %s received", msg.RegistrationNumber)
		body = greeting + fmt.Sprintf("We received your registration %s for %s.\nAmount due: Rs. %d. Complete the payment to confirm your seat.",
			msg.RegistrationNumber, msg.Title, msg.Amount)
	case dto.NotifyPaymentConfirmed:
		subject = fmt.Sprintf("Registration %s confirmed", msg.RegistrationNumber)
		body = greeting + fmt.Sprintf("Your payment of Rs. %d (transaction %s) was received and your registration %s for %s is confirmed.\nDownload your ticket from your registrations page and show its QR code at the entrance.",
			msg.Amount, msg.TransactionID, msg.RegistrationNumber, msg.Title)
	case dto.NotifyRegistrationCancelled:
		subject = fmt.Sprintf("Registration %s cancelled", msg.RegistrationNumber)
		body = greeting + fmt.Sprintf("Your registration %s for %s has been cancelled.\nReason: %s",
			msg.RegistrationNumber, msg.Title, msg.Reason)
	case dto.NotifyPaymentRefunded:
		subject = "Payment refunded"
		body = greeting + fmt.Sprintf("Rs. %d from transaction %s has been refunded.\nReason: %s",
			msg.Amount, msg.TransactionID, msg.Reason)
	case dto.NotifyPasswordReset:
		subject = "Password reset request"
		body = greeting + fmt.Sprintf("A password reset was requested for your account. Use the link below to choose a new password:\n%s\nThe link works once and expires shortly. If you did not ask for this, ignore this email.",
			msg.Link)
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
	return subject, body + "\n\nSymposium team", nil
}

func (m *Mailer) Send(msg dto.NotificationMessage) error {
	subject, body, err := Compose(msg)
	if err != nil {
		return err
	}
	raw := buildMessage(m.cfg.From, msg.Email, subject, body)

	if err := m.deliver(msg.Email, raw); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	m.log.Info().Str("email", msg.Email).Str("kind", string(msg.Kind)).Msg("email sent")
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// deliver speaks SMTP over a connection whose dial and session are both
// bounded by the configured timeout.
func (m *Mailer) deliver(to string, raw []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, m.cfg.Timeout)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
