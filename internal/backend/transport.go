package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/navigation"
	"github.com/paydesk/server/internal/session"
)

type tokenKey struct{}

type withoutSessionKey struct{}

// WithToken makes calls under ctx use token instead of the stored session token.
// Used while a first-time user finishes setup before their session is stored.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// WithoutSession makes calls under ctx carry no stored session token. The login
// exchange runs this way so a wrong password never reads as an expired session.
func WithoutSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, withoutSessionKey{}, true)
}

func sessionless(ctx context.Context) bool {
	v, _ := ctx.Value(withoutSessionKey{}).(bool)
	return v
}

func tokenOverride(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok && t != ""
}

// authTransport attaches the session token to outgoing requests and tears the
// session down when the backend rejects it. Teardown finishes before the
// response is handed back to the caller.
type authTransport struct {
	base    http.RoundTripper
	store   *session.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	// collapses concurrent teardowns for the same browser and token
	clears singleflight.Group
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	browserID, hasBrowser := session.BrowserFrom(ctx)

	token, overridden := tokenOverride(ctx)
	if !overridden && hasBrowser && !sessionless(ctx) {
		token, _ = t.store.Token(ctx, browserID)
	}

	out := req.Clone(ctx)
	out.Header.Del("Authorization")
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	t.observe(req.Method, resp, time.Since(start))
	if err != nil {
		return nil, err
	}

	// Nothing to expire when no credential was sent; the caller sees the
	// backend's own error and wording.
	if token == "" {
		return resp, nil
	}

	failed, reason := classifyAuthFailure(resp)
	if !failed {
		return resp, nil
	}
	resp.Body.Close()

	t.teardown(ctx, browserID, hasBrowser && !overridden, token, reason)
	return nil, fmt.Errorf("%w: backend rejected credentials (%d, %s)", ErrSessionExpired, resp.StatusCode, reason)
}

func (t *authTransport) teardown(ctx context.Context, browserID uuid.UUID, stored bool, token, reason string) {
	if t.metrics != nil {
		t.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}

	if stored {
		key := browserID.String() + ":" + token
		_, _, _ = t.clears.Do(key, func() (any, error) {
			removed, err := t.store.ClearIfToken(context.WithoutCancel(ctx), browserID, token)
			if err != nil {
				t.logger.Error("failed to clear rejected session", "browser_id", browserID, "error", err)
				return nil, err
			}
			if removed {
				t.logger.Info("session cleared after backend rejected token", "browser_id", browserID, "reason", reason)
				if t.metrics != nil {
					t.metrics.SessionClears.WithLabelValues("expired").Inc()
				}
			}
			return nil, nil
		})
	}

	navigation.FromContext(ctx).ToLogin()
}

func (t *authTransport) observe(method string, resp *http.Response, elapsed time.Duration) {
	if t.metrics == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.metrics.BackendRequests.WithLabelValues(method, metrics.StatusClass(status)).Inc()
	t.metrics.BackendLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}
