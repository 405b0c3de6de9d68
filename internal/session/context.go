package session

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const browserKey contextKey = "browser_id"

// WithBrowser attaches the browser identity to ctx
func WithBrowser(ctx context.Context, browserID uuid.UUID) context.Context {
	return context.WithValue(ctx, browserKey, browserID)
}

// BrowserFrom extracts the browser identity from ctx
func BrowserFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(browserKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
