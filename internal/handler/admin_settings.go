package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bugreport/internal/mailer"
	appmw "github.com/bugreport/internal/middleware"
	"github.com/bugreport/internal/model"
	"github.com/bugreport/internal/nonce"
)

type settingsStore interface {
	Load(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
}

type tokenVerifier interface {
	Verify(token, action, sessionID string) bool
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// SettingsHandler serves the options page API. Routes are mounted behind
// RequireIdentity.
type SettingsHandler struct {
	BaseHandler
	settings settingsStore
	nonces   tokenVerifier
	mailer   mailSender
}

func NewSettingsHandler(logger *slog.Logger, settings settingsStore, nonces tokenVerifier, m mailSender) *SettingsHandler {
	return &SettingsHandler{BaseHandler: BaseHandler{Logger: logger}, settings: settings, nonces: nonces, mailer: m}
}

type settingsRequest struct {
	Security string `json:"security"`
	model.Settings
}

// Get returns the current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	h.successResponse(w, r, s)
}

// Update saves settings posted with a SAVE_SETTINGS token.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if !h.verify(r, req.Security) {
		h.errorResponse(w, r, http.StatusForbidden, "bad_nonce")
		return
	}

	if err := h.settings.Save(r.Context(), &req.Settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.errorResponse(w, r, http.StatusUnprocessableEntity, fieldErrors(verrs))
			return
		}
		h.serverErrorResponse(w, r, err)
		return
	}

	var by string
	if id := appmw.IdentityFromContext(r.Context()); id != nil {
		by = id.Username
	}
	h.Logger.Info("settings: updated", "by", by)
	h.successResponse(w, r, req.Settings)
}

// TestEmail sends a short message to the configured recipient.
func (h *SettingsHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Security string `json:"security"`
	}
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if !h.verify(r, req.Security) {
		h.errorResponse(w, r, http.StatusForbidden, "bad_nonce")
		return
	}

	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	err = h.mailer.Send(r.Context(), mailer.Message{
		To:      s.EmailRecipient,
		Subject: s.EmailSubject + " (test)",
		Body:    "This is a test email from the bug report service.",
	})
	if err != nil {
		h.logError(r, err)
		h.errorResponse(w, r, http.StatusBadGateway, "send_failed")
		return
	}
	h.successResponse(w, r, nil)
}

func (h *SettingsHandler) verify(r *http.Request, token string) bool {
	return h.nonces.Verify(token, nonce.ActionSaveSettings, appmw.SessionIDFromContext(r.Context()))
}

// fieldErrors maps each failing JSON field to the rule it broke.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
