package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/navigation"
	"github.com/paydesk/server/internal/session"
)

type contextKey string

const userKey contextKey = "user"

// guardState is the outcome of checking a request against the session store.
// Every request starts unchecked and ends denied or granted.
type guardState int

const (
	guardUnchecked guardState = iota
	guardDenied
	guardGranted
)

// evaluate is run afresh for every request; nothing is remembered between requests
func evaluate(ctx context.Context, store *session.Store) (guardState, *model.User) {
	browserID, ok := session.BrowserFrom(ctx)
	if !ok {
		return guardDenied, nil
	}
	sess, ok := store.Load(ctx, browserID)
	if !ok {
		return guardDenied, nil
	}
	u := sess.User
	return guardGranted, &u
}

// RequireSession only lets requests from a signed-in browser reach protected
// handlers. Everyone else is sent to the login view without any protected content.
func RequireSession(store *session.Store, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, user := evaluate(r.Context(), store)

			if state != guardGranted {
				if m != nil {
					m.GuardDenials.Inc()
				}
				RedirectToLogin(w, r, navigation.LoginPath, "sign in required")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the user attached to the request context (set by RequireSession)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WantsJSON reports whether the caller asked for a JSON response
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// RedirectToLogin sends the browser to target. JSON callers get a 401 naming
// the redirect instead, since fetch follows 303s silently.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, target, message string) {
	h := w.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	h.Set("Cache-Control", "no-store")

	if WantsJSON(r) {
		h.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "redirect": target})
		return
	}
	h.Set("Location", target)
	w.WriteHeader(http.StatusSeeOther)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
