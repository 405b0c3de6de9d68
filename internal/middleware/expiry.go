package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"

	"github.com/paydesk/server/internal/navigation"
)

// SessionExpiry gives every request a navigation slot. When a backend call made
// while serving the request finds the session expired, whatever the handler
// writes is replaced by the redirect to the login view.
func SessionExpiry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nav := navigation.New()
		ew := &expiryWriter{ResponseWriter: w, nav: nav, req: r}

		next.ServeHTTP(ew, r.WithContext(navigation.WithNavigation(r.Context(), nav)))

		if !ew.wroteHeader {
			if target, ok := nav.Target(); ok {
				ew.redirect(target)
			}
		}
	})
}

type expiryWriter struct {
	http.ResponseWriter
	nav         *navigation.Navigation
	req         *http.Request
	wroteHeader bool
	redirected  bool
}

func (w *expiryWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	if target, ok := w.nav.Target(); ok {
		w.redirect(target)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *expiryWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.redirected {
		// swallow the handler's own rendering
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *expiryWriter) redirect(target string) {
	w.wroteHeader = true
	w.redirected = true
	RedirectToLogin(w.ResponseWriter, w.req, target, "session expired")
}

func (w *expiryWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.redirected {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *expiryWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

// Unwrap lets http.ResponseController reach the underlying writer
func (w *expiryWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
