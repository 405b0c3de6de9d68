package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/validate"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFailureMapping(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/payments", nil)
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", validate.Errors{"email": "is required"}, http.StatusUnprocessableEntity, "please correct the highlighted fields"},
		{"invalid mobile", fmt.Errorf("payment 2: %w", backend.ErrInvalidMobile), http.StatusUnprocessableEntity, "payment 2: " + backend.ErrInvalidMobile.Error()},
		{"business error", &backend.Error{Status: 422, Detail: "Insufficient balance"}, http.StatusUnprocessableEntity, "Insufficient balance"},
		{"backend 5xx", &backend.Error{Status: 503}, http.StatusBadGateway, "Service Unavailable"},
		{"network", &backend.TransportError{Op: "GET /x", Err: errors.New("refused")}, http.StatusBadGateway, backend.NetworkMessage},
		{"cooldown", auth.ErrResendCooldown, http.StatusTooManyRequests, auth.ErrResendCooldown.Error()},
		{"no challenge", auth.ErrNoChallenge, http.StatusConflict, auth.ErrNoChallenge.Error()},
		{"expired", fmt.Errorf("GET /x: %w", backend.ErrSessionExpired), http.StatusUnauthorized, backend.Message(backend.ErrSessionExpired)},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, backend.GenericMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := failure(r, quietLogger, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, body.Error)
		})
	}
}

func TestDateRangeFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?startDate=2026-01-01&endDate=2026-01-31&interval=weekly", nil)
	dr, err := dateRange(r)
	assert.NoError(t, err)
	assert.Equal(t, "WEEKLY", dr.Interval)

	r = httptest.NewRequest(http.MethodGet, "/x?startDate=yesterday", nil)
	_, err = dateRange(r)
	assert.Error(t, err)
}
