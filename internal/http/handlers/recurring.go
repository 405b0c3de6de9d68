package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

// RecurringHandler handles recurring payment subscriptions
type RecurringHandler struct {
	api    *backend.Client
	logger *slog.Logger
}

// NewRecurringHandler creates a new recurring payment handler
func NewRecurringHandler(api *backend.Client, logger *slog.Logger) *RecurringHandler {
	return &RecurringHandler{api: api, logger: logger}
}

type authorizeRequest struct {
	OTP string `json:"otp"`
}

// HandleCreate handles POST /recurring/subscriptions
func (h *RecurringHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var s model.Subscription
	if !decodeJSON(w, r, &s) {
		return
	}
	s.Frequency = strings.ToUpper(strings.TrimSpace(s.Frequency))
	errs := validate.Errors{}
	errs.Required("mobileNumber", s.MobileNumber)
	errs.Amount("amount", s.Amount)
	if errs.Required("frequency", s.Frequency) {
		switch s.Frequency {
		case model.IntervalDaily, model.IntervalWeekly, model.IntervalMonthly:
		default:
			errs.Add("frequency", "must be DAILY, WEEKLY or MONTHLY")
		}
	}
	if s.StartDate != "" {
		errs.DateRange(model.DateRange{StartDate: s.StartDate})
	}
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}

	created, err := h.api.CreateSubscription(r.Context(), s)
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// HandleAuthorize handles POST /recurring/subscriptions/{id}/authorize
func (h *RecurringHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := validate.Errors{}
	errs.OTP("otp", req.OTP)
	if err := errs.Err(); err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	sub, err := h.api.AuthorizeSubscription(r.Context(), backend.SubscriptionOTP{
		SubscriptionID: chi.URLParam(r, "id"),
		OTP:            strings.TrimSpace(req.OTP),
	})
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// HandleResendOTP handles POST /recurring/subscriptions/{id}/resend-otp
func (h *RecurringHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	err := h.api.ResendSubscriptionOTP(r.Context(), backend.SubscriptionOTP{SubscriptionID: chi.URLParam(r, "id")})
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "otp_sent"})
}

// HandleFirstInstallment handles POST /recurring/subscriptions/{id}/first-installment
func (h *RecurringHandler) HandleFirstInstallment(w http.ResponseWriter, r *http.Request) {
	sub, err := h.api.FirstInstallment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}
