package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/validate"
)

const maxBodyBytes = 1 << 20

// errorResponse is the JSON body of every error reply
type errorResponse struct {
	Error  string          `json:"error"`
	Fields validate.Errors `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithFailure maps err to a status and a message the user can act on.
// Session expiry needs no handling here: the request's login redirect replaces
// whatever is written.
func respondWithFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := failure(r, logger, err)
	respondJSON(w, status, body)
}

func failure(r *http.Request, logger *slog.Logger, err error) (int, errorResponse) {
	var verrs validate.Errors
	var apiErr *backend.Error
	var netErr *backend.TransportError

	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, errorResponse{Error: "please correct the highlighted fields", Fields: verrs}
	case errors.Is(err, backend.ErrInvalidMobile):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, backend.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{Error: backend.Message(err)}
	case errors.Is(err, auth.ErrResendCooldown):
		return http.StatusTooManyRequests, errorResponse{Error: err.Error()}
	case errors.Is(err, auth.ErrNoChallenge), errors.Is(err, auth.ErrNoPendingSetup):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= 500 || status < 400 {
			status = http.StatusBadGateway
		}
		return status, errorResponse{Error: apiErr.UserMessage()}
	case errors.As(err, &netErr):
		logger.Warn("backend unreachable", "path", r.URL.Path, "error", err)
		return http.StatusBadGateway, errorResponse{Error: backend.NetworkMessage}
	default:
		logger.Error("request failed", "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError, errorResponse{Error: backend.GenericMessage}
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// dateRange reads startDate, endDate and interval from the query string
func dateRange(r *http.Request) (model.DateRange, error) {
	q := r.URL.Query()
	dr := model.DateRange{
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
		Interval:  strings.ToUpper(strings.TrimSpace(q.Get("interval"))),
	}
	errs := validate.Errors{}
	errs.DateRange(dr)
	return dr, errs.Err()
}
