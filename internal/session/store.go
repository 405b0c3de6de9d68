// Package session is the single source of truth for whether a browser is signed in.
// Every reader and writer of the token and cached profile goes through Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/repo"
)

// ErrEmptyToken is returned by Set when no token is supplied
var ErrEmptyToken = errors.New("session token is empty")

// Store is the browser-scoped session store. Reads never fail: a storage
// error is logged and reported as "not signed in".
type Store struct {
	repo    repo.SessionRepo
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewStore creates a Store over the given repository
func NewStore(r repo.SessionRepo, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: r, logger: logger, nowFunc: time.Now}
}

// Set stores token and user together in one write
func (s *Store) Set(ctx context.Context, browserID uuid.UUID, token string, user model.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	if browserID == uuid.Nil {
		return fmt.Errorf("set session: missing browser identity")
	}
	sess := model.Session{Token: token, User: user, CreatedAt: s.nowFunc().UTC()}
	if err := s.repo.Put(ctx, browserID, sess); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Load returns token and user as one snapshot
func (s *Store) Load(ctx context.Context, browserID uuid.UUID) (model.Session, bool) {
	if browserID == uuid.Nil {
		return model.Session{}, false
	}
	sess, err := s.repo.Get(ctx, browserID)
	if err != nil {
		if !errors.Is(err, repo.ErrSessionNotFound) {
			s.logger.Warn("session read failed, treating browser as signed out",
				"browser_id", browserID, "error", err)
		}
		return model.Session{}, false
	}
	if !sess.Valid() {
		return model.Session{}, false
	}
	return sess, true
}

// Token returns the stored bearer token
func (s *Store) Token(ctx context.Context, browserID uuid.UUID) (string, bool) {
	sess, ok := s.Load(ctx, browserID)
	if !ok {
		return "", false
	}
	return sess.Token, true
}

// User returns the cached profile; absent whenever the token is absent
func (s *Store) User(ctx context.Context, browserID uuid.UUID) (*model.User, bool) {
	sess, ok := s.Load(ctx, browserID)
	if !ok {
		return nil, false
	}
	u := sess.User
	return &u, true
}

// IsAuthenticated reports whether a non-empty token is stored
func (s *Store) IsAuthenticated(ctx context.Context, browserID uuid.UUID) bool {
	_, ok := s.Load(ctx, browserID)
	return ok
}

// Clear removes token and user. Clearing an empty session is a no-op.
func (s *Store) Clear(ctx context.Context, browserID uuid.UUID) error {
	if browserID == uuid.Nil {
		return nil
	}
	if err := s.repo.Delete(ctx, browserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ClearIfToken clears the session only if it still holds token, so a failure
// observed for an old token cannot sign out a newer login. Reports whether
// anything was removed.
func (s *Store) ClearIfToken(ctx context.Context, browserID uuid.UUID, token string) (bool, error) {
	if browserID == uuid.Nil || token == "" {
		return false, nil
	}
	removed, err := s.repo.DeleteIfToken(ctx, browserID, token)
	if err != nil {
		return false, fmt.Errorf("clear session: %w", err)
	}
	return removed, nil
}
