package handlers

import (
	"log/slog"
	"net/http"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

// SettingsHandler serves the profile and API credential settings
type SettingsHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(api *backend.Client, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{api: api, logger: logger}
}

// HandleProfile handles GET /settings/profile
func (h *SettingsHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.api.Profile(r.Context())
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleUpdateProfile handles PUT /settings/profile
func (h *SettingsHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	errs := validate.Errors{}
	errs.Required("firstname", p.Firstname)
	errs.Required("lastname", p.Lastname)
	errs.Email("email", p.Email)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	saved, err := h.api.UpdateProfile(r.Context(), p)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// HandleRegenerateCredentials handles POST /settings/credentials
func (h *SettingsHandler) HandleRegenerateCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.api.RegenerateCredentials(r.Context())
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, creds)
}
