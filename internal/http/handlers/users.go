package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/middleware"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

// UserHandler handles partner and user onboarding
type UserHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(api *backend.Client, logger *slog.Logger) *UserHandler {
	return &UserHandler{api: api, logger: logger}
}

// HandleRegister handles POST /users
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	if me, ok := middleware.GetUser(r.Context()); ok && reg.RegisteredBy == "" {
		reg.RegisteredBy = me.Email
	}
	errs := validate.Errors{}
	errs.Required("firstname", reg.Firstname)
	errs.Required("lastname", reg.Lastname)
	errs.Email("email", reg.Email)
	errs.Required("organizationName", reg.OrganizationName)
	errs.Required("mobileNumber", reg.MobileNumber)
	errs.Required("userType", reg.UserType)
	if reg.TransactionFee != nil && *reg.TransactionFee < 0 {
		errs.Add("transactionFee", "must not be negative")
	}
	if reg.CappedAmount != nil && *reg.CappedAmount < 0 {
		errs.Add("cappedAmount", "must not be negative")
	}
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	created, err := h.api.Register(r.Context(), reg)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// HandleList handles GET /users. Defaults to the signed-in user's organization.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	org := strings.TrimSpace(r.URL.Query().Get("organizationName"))
	if org == "" {
		if me, ok := middleware.GetUser(r.Context()); ok {
			org = me.OrganizationName
		}
	}
	if org == "" {
		respondWithFailure(w, r, h.logger, validate.Errors{"organizationName": "is required"})
		return
	}
	users, err := h.api.UsersByOrganization(r.Context(), org)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.OrgUser{}
	}
	respondJSON(w, http.StatusOK, users)
}

// HandleMe handles GET /me: the cached profile of the signed-in user
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
