package mailer

import (
	"context"
	"log/slog"
)

// LogTransport logs messages instead of sending them. Used in development
// when no mail backend is configured.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, from string, msg Message) error {
	t.logger.InfoContext(ctx, "mailer: email not sent (log transport)",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
		"content_type", msg.ContentType,
		"attachments", msg.Attachments,
		"body", msg.Body,
	)
	return nil
}
