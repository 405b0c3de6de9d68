package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/session"
)

// BrowserCookie names the cookie carrying the signed browser identity
const BrowserCookie = "paydesk_browser"

const browserCookieMaxAge = 365 * 24 * time.Hour

// BrowserIdentity resolves the browser profile behind a request from its signed
// cookie, minting a new identity when the cookie is missing or invalid, and
// attaches it to the request context.
func BrowserIdentity(jwtService *auth.JWTService, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			browserID, ok := browserFromCookie(jwtService, r)
			if !ok {
				browserID = uuid.New()
				token, err := jwtService.SignBrowserToken(browserID)
				if err != nil {
					logger.Error("failed to sign browser identity", "error", err)
					respondWithError(w, http.StatusInternalServerError, "internal error")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     BrowserCookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(browserCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := session.WithBrowser(r.Context(), browserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func browserFromCookie(jwtService *auth.JWTService, r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(BrowserCookie)
	if err != nil || c.Value == "" {
		return uuid.Nil, false
	}
	id, err := jwtService.VerifyBrowserToken(c.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
