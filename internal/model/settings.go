package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const (
	DefaultEmailRecipient = "user@example.com"
	DefaultEmailSubject   = "New Admin Bug Report"
)

// Settings is the persisted option set for the bug report widget. The JSON
// keys match what the settings page writes.
type Settings struct {
	EmailRecipient    string `json:"email_recipient" validate:"required,email"`
	EmailSubject      string `json:"email_subject" validate:"required,max=255"`
	EmailIncludeDebug bool   `json:"email_include_debug"`
}

// DefaultSettings returns the options written by the activation routine.
func DefaultSettings() *Settings {
	return &Settings{
		EmailRecipient:    DefaultEmailRecipient,
		EmailSubject:      DefaultEmailSubject,
		EmailIncludeDebug: false,
	}
}

// Validate checks the settings before they are persisted.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// ReportConfig is the read-only view of the settings used for one submission.
type ReportConfig struct {
	RecipientEmail     string
	SubjectLine        string
	IncludeDiagnostics bool
}

func (s *Settings) ReportConfig() ReportConfig {
	return ReportConfig{
		RecipientEmail:     s.EmailRecipient,
		SubjectLine:        s.EmailSubject,
		IncludeDiagnostics: s.EmailIncludeDebug,
	}
}
