package app

import (
	"fmt"
	"log/slog"

	"github.com/bugreport/internal/config"
	"github.com/bugreport/internal/mailer"
)

func newTransport(cfg *config.Config, logger *slog.Logger) (mailer.Transport, error) {
	switch cfg.Mail.Driver {
	case "smtp":
		return mailer.NewSMTPTransport(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			User:     cfg.Mail.SMTPUser,
			Pass:     cfg.Mail.SMTPPass,
			Security: cfg.Mail.SMTPSecurity,
		}), nil
	case "resend":
		return mailer.NewResendTransport(cfg.Mail.ResendAPIKey), nil
	case "log":
		return mailer.NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}
