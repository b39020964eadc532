package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTP connection security modes.
const (
	SecuritySSL      = "ssl"
	SecuritySTARTTLS = "starttls"
	SecurityNone     = "none"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	Security string
}

// SMTPTransport sends through an SMTP relay.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)

	switch cfg.Security {
	case SecuritySSL:
		d.SSL = true
	case SecurityNone:
		d.SSL = false
		d.TLSConfig = nil
	default:
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}

	return &SMTPTransport{dialer: d}
}

// Send dials the relay for every message and returns once the SMTP session
// ends. gomail has no context support, so ctx is only checked before dialing.
func (t *SMTPTransport) Send(ctx context.Context, from string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	if err := t.dialer.DialAndSend(buildMessage(from, msg)); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

func buildMessage(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}

	m.SetBody(msg.ContentType, msg.Body)
	for _, path := range msg.Attachments {
		m.Attach(path)
	}
	return m
}
