package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/middleware"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/navigation"
	"github.com/paydesk/server/internal/session"
	"github.com/paydesk/server/internal/validate"
)

// AuthHandler handles the login, reset-password, setup and logout endpoints
type AuthHandler struct {
	login  *auth.LoginService
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(login *auth.LoginService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{login: login, logger: logger}
}

// loginRequest is the request body for POST /login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Channel  string `json:"channel"`
}

// verifyRequest is the request body for POST /login/verify
type verifyRequest struct {
	OTP string `json:"otp"`
}

// resetPasswordRequest is the request body for POST /reset-password
type resetPasswordRequest struct {
	Email           string `json:"email"`
	TempPassword    string `json:"tempPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// loginStateResponse is the JSON shape of every login step
type loginStateResponse struct {
	auth.State
	ResendInSeconds int             `json:"resendInSeconds,omitempty"`
	Error           string          `json:"error,omitempty"`
	Fields          validate.Errors `json:"fields,omitempty"`
}

func stateResponse(st auth.State) loginStateResponse {
	return loginStateResponse{
		State:           st,
		ResendInSeconds: int(math.Ceil(st.ResendIn.Seconds())),
	}
}

func browserID(r *http.Request) uuid.UUID {
	id, _ := session.BrowserFrom(r.Context())
	return id
}

// HandleLoginState handles GET /login
func (h *AuthHandler) HandleLoginState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stateResponse(h.login.State(browserID(r))))
}

// HandleLogin handles POST /login: email and password, then a code is sent
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.login.Start(r.Context(), browserID(r), req.Email, req.Password, strings.ToUpper(strings.TrimSpace(req.Channel)))
	h.respondStep(w, r, st, err)
}

// HandleResend handles POST /login/resend
func (h *AuthHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	st, err := h.login.Resend(r.Context(), browserID(r))
	h.respondStep(w, r, st, err)
}

// HandleChangeEmail handles POST /login/change-email
func (h *AuthHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stateResponse(h.login.ChangeEmail(browserID(r))))
}

// HandleVerify handles POST /login/verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.login.Verify(r.Context(), browserID(r), req.OTP)
	h.respondStep(w, r, st, err)
}

// respondStep renders the login state, with the failure message when the step failed
func (h *AuthHandler) respondStep(w http.ResponseWriter, r *http.Request, st auth.State, err error) {
	body := stateResponse(st)
	if err == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}
	status, f := failure(r, h.logger, err)
	body.Error = f.Error
	body.Fields = f.Fields
	respondJSON(w, status, body)
}

// HandleResetPassword handles POST /reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		req.Email = r.URL.Query().Get("email")
	}
	if err := h.login.ResetPassword(r.Context(), req.Email, req.TempPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":  "password updated, please sign in",
		"redirect": navigation.LoginPath,
	})
}

// HandleSetupState handles GET /setup for a first-time user
func (h *AuthHandler) HandleSetupState(w http.ResponseWriter, r *http.Request) {
	user, ok := h.login.PendingUser(browserID(r))
	if !ok {
		middleware.RedirectToLogin(w, r, navigation.LoginPath, "no setup in progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleCompleteSetup handles POST /setup
func (h *AuthHandler) HandleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	st, err := h.login.CompleteSetup(r.Context(), browserID(r), p)
	h.respondStep(w, r, st, err)
}

// HandleLogout handles POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.login.Logout(r.Context(), browserID(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out", "redirect": navigation.LoginPath})
}
