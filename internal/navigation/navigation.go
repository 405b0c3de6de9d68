// Package navigation carries a per-request "send the browser elsewhere" decision
// from deep inside a backend call up to the response writer.
package navigation

import (
	"context"
	"sync"
)

// LoginPath is the login entry point
const LoginPath = "/login"

// Navigation records at most one redirect for a request
type Navigation struct {
	once   sync.Once
	mu     sync.RWMutex
	target string
}

// New creates an empty Navigation
func New() *Navigation {
	return &Navigation{}
}

// ToLogin requests a redirect to the login entry point. Only the first call
// has an effect; it reports whether this call was the one that set it.
func (n *Navigation) ToLogin() bool {
	if n == nil {
		return false
	}
	first := false
	n.once.Do(func() {
		n.mu.Lock()
		n.target = LoginPath
		n.mu.Unlock()
		first = true
	})
	return first
}

// Target returns the requested redirect, if any
func (n *Navigation) Target() (string, bool) {
	if n == nil {
		return "", false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.target, n.target != ""
}

type contextKey struct{}

// WithNavigation attaches n to ctx
func WithNavigation(ctx context.Context, n *Navigation) context.Context {
	return context.WithValue(ctx, contextKey{}, n)
}

// FromContext returns the request's Navigation, or nil outside a request
func FromContext(ctx context.Context) *Navigation {
	n, _ := ctx.Value(contextKey{}).(*Navigation)
	return n
}
