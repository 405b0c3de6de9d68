package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/paydesk/server/internal/session"
)

// RateLimiter is an in-memory sliding-window limiter for the login endpoints.
// The backend remains the authority on OTP throttling; this only blunts
// credential stuffing against it.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	maxReqs  int
	nowFunc  func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(window time.Duration, maxReqs int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		maxReqs:  maxReqs,
		nowFunc:  time.Now,
	}
}

// Allow checks if a request is allowed for the given key. When it is not, it
// also returns how long until the oldest request leaves the window.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFunc()
	filtered := rl.prune(key, now.Add(-rl.window))

	if len(filtered) >= rl.maxReqs {
		return false, filtered[0].Add(rl.window).Sub(now)
	}

	rl.requests[key] = append(filtered, now)
	return true, 0
}

// prune must be called with mu held
func (rl *RateLimiter) prune(key string, cutoff time.Time) []time.Time {
	reqs := rl.requests[key]
	filtered := reqs[:0]
	for _, t := range reqs {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = filtered
	return filtered
}

// Cleanup periodically removes stale keys until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.nowFunc().Add(-rl.window)
			for key := range rl.requests {
				rl.prune(key, cutoff)
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(limiter *RateLimiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := limiter.Allow(keyFunc(r))
			if !ok {
				secs := int(retryAfter.Round(time.Second).Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				respondWithError(w, http.StatusTooManyRequests, "too many attempts, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIPKey extracts the client IP for rate limiting. chi's RealIP has already
// folded X-Forwarded-For into RemoteAddr.
func GetIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// GetBrowserKey keys on the browser identity, falling back to the IP
func GetBrowserKey(r *http.Request) string {
	if id, ok := session.BrowserFrom(r.Context()); ok {
		return "browser:" + id.String()
	}
	return GetIPKey(r)
}
