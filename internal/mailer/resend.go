package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendTransport sends through the Resend HTTP API.
type ResendTransport struct {
	client *resend.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Send(ctx context.Context, from string, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Headers: msg.Headers,
	}
	if strings.HasPrefix(msg.ContentType, ContentTypeHTML) {
		params.Html = msg.Body
	} else {
		params.Text = msg.Body
	}

	for _, path := range msg.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("resend: read attachment: %w", err)
		}
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:  data,
			Filename: filepath.Base(path),
		})
	}

	if _, err := t.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}
