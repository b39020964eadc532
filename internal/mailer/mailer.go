// Package mailer delivers report emails through a pluggable transport.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"

	DefaultTimeout = 30 * time.Second
)

var ErrNoRecipient = errors.New("mailer: no recipient")

// Message is one outgoing email. ContentType applies to this message only;
// an empty value falls back to the Mailer default. Attachments are file paths
// read at send time.
//
// OnComplete, when set, runs exactly once after the transport has finished
// with the message, with the transport's result. When Send gives up on its
// timeout it runs later, once the abandoned delivery returns, so attachment
// files must stay in place until then.
type Message struct {
	To          string
	Subject     string
	Body        string
	ContentType string
	Headers     map[string]string
	Attachments []string
	OnComplete  func(error)
}

// Transport hands a fully formed message to a delivery backend. A transport
// may ignore ctx; Mailer stops waiting for it when ctx is done.
type Transport interface {
	Send(ctx context.Context, from string, msg Message) error
}

// Mailer wraps a Transport with the sender address, the default content type
// and a per-send timeout.
type Mailer struct {
	transport          Transport
	from               string
	timeout            time.Duration
	defaultContentType string
}

// New returns a Mailer sending as "fromName <fromAddress>".
func New(t Transport, fromAddress, fromName string, timeout time.Duration) *Mailer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	from := fromAddress
	if fromName != "" {
		from = (&mail.Address{Name: fromName, Address: fromAddress}).String()
	}
	return &Mailer{
		transport:          t,
		from:               from,
		timeout:            timeout,
		defaultContentType: ContentTypePlain,
	}
}

// From returns the formatted sender.
func (m *Mailer) From() string {
	return m.from
}

// Send delivers msg, giving up after the configured timeout. A delivery still
// running at the timeout is left to finish in the background.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	complete := msg.OnComplete
	if complete == nil {
		complete = func(error) {}
	}
	msg.OnComplete = nil

	if strings.TrimSpace(msg.To) == "" {
		complete(ErrNoRecipient)
		return ErrNoRecipient
	}
	if msg.ContentType == "" {
		msg.ContentType = m.defaultContentType
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)

	errc := make(chan error, 1)
	go func() {
		defer cancel()
		err := m.transport.Send(ctx, m.from, msg)
		complete(err)
		errc <- err
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}
