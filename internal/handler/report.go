package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	appmw "github.com/bugreport/internal/middleware"
	"github.com/bugreport/internal/model"
	"github.com/bugreport/internal/nonce"
	"github.com/bugreport/internal/submission"
)

// Form field names posted by the widget.
const (
	fieldSecurity   = "security"
	fieldMessage    = "message"
	fieldScreenshot = "screenshot"
	fieldGlobals    = "globals"
)

type settingsLoader interface {
	Load(ctx context.Context) (*model.Settings, error)
}

type submitter interface {
	Submit(ctx context.Context, req submission.Request, cfg model.ReportConfig, identity *model.Identity) submission.Outcome
}

type tokenIssuer interface {
	Create(action, sessionID string) string
}

// ReportHandler serves the bug report widget endpoints.
type ReportHandler struct {
	BaseHandler
	service         submitter
	settings        settingsLoader
	nonces          tokenIssuer
	ajaxURL         string
	maxUploadSizeMB int
}

func NewReportHandler(logger *slog.Logger, service submitter, settings settingsLoader, nonces tokenIssuer, ajaxURL string, maxUploadSizeMB int) *ReportHandler {
	return &ReportHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		service:         service,
		settings:        settings,
		nonces:          nonces,
		ajaxURL:         ajaxURL,
		maxUploadSizeMB: maxUploadSizeMB,
	}
}

type bootstrapResponse struct {
	AjaxURL  string            `json:"ajaxUrl"`
	Nonces   map[string]string `json:"nonces"`
	Settings bootstrapSettings `json:"settings"`
}

type bootstrapSettings struct {
	EmailIncludeDebug bool `json:"email_include_debug"`
}

// Bootstrap returns the data the widget needs on page load: the submit URL,
// tokens bound to the caller's session and the diagnostics flag. Signed-in
// callers also get a settings token.
func (h *ReportHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	sessionID := appmw.SessionIDFromContext(r.Context())
	resp := bootstrapResponse{
		AjaxURL: h.ajaxURL,
		Nonces: map[string]string{
			nonce.ActionSubmitReport: h.nonces.Create(nonce.ActionSubmitReport, sessionID),
		},
		Settings: bootstrapSettings{EmailIncludeDebug: s.EmailIncludeDebug},
	}
	if appmw.IdentityFromContext(r.Context()) != nil {
		resp.Nonces[nonce.ActionSaveSettings] = h.nonces.Create(nonce.ActionSaveSettings, sessionID)
	}
	if err := h.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Submit accepts a report posted as a urlencoded or multipart form.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	maxSize := int64(h.maxUploadSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := parseForm(r, maxSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			h.errorResponse(w, r, http.StatusRequestEntityTooLarge, "too_large")
			return
		}
		h.errorResponse(w, r, http.StatusBadRequest, submission.ReasonMissingFields)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := submission.Request{
		SessionID:   appmw.SessionIDFromContext(r.Context()),
		Message:     r.PostForm.Get(fieldMessage),
		Screenshot:  r.PostForm.Get(fieldScreenshot),
		Diagnostics: r.PostForm.Get(fieldGlobals),
	}
	if values, ok := r.PostForm[fieldSecurity]; ok && len(values) > 0 {
		token := values[0]
		req.Token = &token
	}

	// Without a token the submission is rejected before settings matter.
	var cfg model.ReportConfig
	if req.Token != nil {
		s, err := h.settings.Load(r.Context())
		if err != nil {
			h.serverErrorResponse(w, r, err)
			return
		}
		cfg = s.ReportConfig()
	}

	out := h.service.Submit(r.Context(), req, cfg, appmw.IdentityFromContext(r.Context()))
	switch out.Status {
	case submission.StatusRejected:
		status := http.StatusBadRequest
		if out.Reason == submission.ReasonBadNonce {
			status = http.StatusForbidden
		}
		h.errorResponse(w, r, status, out.Reason)
	case submission.StatusFailed:
		h.errorResponse(w, r, http.StatusInternalServerError, nil)
	default:
		h.successResponse(w, r, envelope{"id": out.ReportID})
	}
}

func parseForm(r *http.Request, maxSize int64) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		return r.ParseMultipartForm(maxSize)
	}
	return r.ParseForm()
}
