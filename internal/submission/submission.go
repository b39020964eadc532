// Package submission runs one bug report from the inbound request to the
// mail transport.
package submission

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/bugreport/internal/attachment"
	"github.com/bugreport/internal/diagnostics"
	"github.com/bugreport/internal/mailer"
	"github.com/bugreport/internal/metrics"
	"github.com/bugreport/internal/model"
	"github.com/bugreport/internal/nonce"
	"github.com/bugreport/internal/report"
	"github.com/bugreport/internal/retention"
)

// ReportIDHeader carries the report ID on the outgoing email.
const ReportIDHeader = "X-Bug-Report-ID"

type Status string

const (
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
	StatusSent     Status = "sent"
)

const (
	ReasonMissingFields = "missing_fields"
	ReasonBadNonce      = "bad_nonce"
)

type TokenVerifier interface {
	Verify(token, action, sessionID string) bool
}

// Sender delivers a message and runs msg.OnComplete once the message and its
// attachments are no longer in use, which may be after Send has returned.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Request is one inbound submission. Token is nil when the security field
// was absent from the request.
type Request struct {
	Token       *string
	SessionID   string
	Message     string
	Screenshot  string
	Diagnostics string
}

type Outcome struct {
	Status   Status
	Reason   string
	ReportID string
	Report   *report.Rendered
}

type Deps struct {
	Tokens    TokenVerifier
	Decoder   *attachment.Decoder
	Composer  *report.Composer
	Mailer    Sender
	Retention retention.Policy
	Metrics   *metrics.Metrics
	SiteURL   string
	Logger    *slog.Logger
	NewID     func() string
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Composer == nil {
		deps.Composer = report.NewComposer("")
	}
	return &Service{deps: deps}
}

// Submit validates the token, then decodes, composes and dispatches the
// report. Only a missing or invalid token stops the pipeline; a bad
// screenshot or malformed diagnostics are dropped and the report still goes
// out.
func (s *Service) Submit(ctx context.Context, req Request, cfg model.ReportConfig, identity *model.Identity) Outcome {
	if req.Token == nil {
		return s.finish(Outcome{Status: StatusRejected, Reason: ReasonMissingFields})
	}
	if !s.deps.Tokens.Verify(*req.Token, nonce.ActionSubmitReport, req.SessionID) {
		return s.finish(Outcome{Status: StatusRejected, Reason: ReasonBadNonce})
	}

	id := s.deps.NewID()
	log := s.deps.Logger.With("component", "submission", "report_id", id)

	var attachments []string
	if path := s.screenshot(req.Screenshot, log); path != "" {
		attachments = append(attachments, path)
	}

	var lines []string
	if cfg.IncludeDiagnostics && req.Diagnostics != "" {
		lines = s.diagnostics(req.Diagnostics, log)
	}

	rendered := s.deps.Composer.Compose(req.Message, lines, identity, s.deps.SiteURL, cfg)
	rendered.Attachments = attachments

	var returned atomic.Bool
	start := time.Now()
	err := s.deps.Mailer.Send(ctx, mailer.Message{
		To:          rendered.To,
		Subject:     rendered.Subject,
		Body:        rendered.HTMLBody,
		ContentType: mailer.ContentTypeHTML,
		Headers:     map[string]string{ReportIDHeader: id},
		Attachments: rendered.Attachments,
		OnComplete: func(err error) {
			if returned.Load() {
				log.Warn("submission: delivery finished after timeout", "error", err)
			}
			s.release(attachments, log)
		},
	})
	returned.Store(true)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveMail(start)
	}

	if err != nil {
		log.Error("submission: failed to send report", "error", err)
		return s.finish(Outcome{Status: StatusFailed, ReportID: id, Report: &rendered})
	}

	log.Info("submission: report sent",
		"attachments", len(attachments),
		"diagnostic_lines", len(lines),
		"body", humanize.Bytes(uint64(len(rendered.HTMLBody))),
	)
	return s.finish(Outcome{Status: StatusSent, ReportID: id, Report: &rendered})
}

// release applies the retention policy to the report's attachments once the
// transport is done reading them.
func (s *Service) release(attachments []string, log *slog.Logger) {
	for _, path := range attachments {
		if err := s.deps.Retention.AfterSend(path); err != nil {
			log.Warn("submission: retention failed", "error", err)
		}
	}
}

func (s *Service) screenshot(dataURL string, log *slog.Logger) string {
	if dataURL == "" {
		s.countAttachment("none")
		return ""
	}
	att, err := s.deps.Decoder.Decode(dataURL)
	if err != nil {
		log.Warn("submission: screenshot dropped", "error", err, "payload", humanize.Bytes(uint64(len(dataURL))))
		s.countAttachment("rejected")
		return ""
	}
	log.Debug("submission: screenshot saved", "file", att.Path, "size", humanize.Bytes(uint64(att.Size)))
	s.countAttachment("attached")
	return att.Path
}

func (s *Service) diagnostics(raw string, log *slog.Logger) []string {
	tree, err := diagnostics.Parse([]byte(raw))
	if err != nil {
		log.Warn("submission: diagnostics dropped", "error", err)
		return nil
	}
	return diagnostics.Flatten(tree)
}

func (s *Service) countAttachment(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Attachments.WithLabelValues(result).Inc()
	}
}

func (s *Service) finish(o Outcome) Outcome {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Submissions.WithLabelValues(string(o.Status), o.Reason).Inc()
	}
	return o
}
