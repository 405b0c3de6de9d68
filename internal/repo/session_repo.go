package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paydesk/server/internal/model"
)

// ErrSessionNotFound is returned when a browser has no stored session
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo persists one session record per browser
type SessionRepo interface {
	Put(ctx context.Context, browserID uuid.UUID, s model.Session) error
	Get(ctx context.Context, browserID uuid.UUID) (model.Session, error)
	Delete(ctx context.Context, browserID uuid.UUID) error
	// DeleteIfToken removes the record only while it still holds token
	DeleteIfToken(ctx context.Context, browserID uuid.UUID, token string) (bool, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a Postgres-backed SessionRepo
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Put writes token and profile in a single row so readers never see one without the other
func (r *sessionRepo) Put(ctx context.Context, browserID uuid.UUID, s model.Session) error {
	profile, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode user profile: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO browser_sessions (browser_id, token, user_profile, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (browser_id) DO UPDATE
		SET token = EXCLUDED.token, user_profile = EXCLUDED.user_profile, created_at = EXCLUDED.created_at
	`, browserID.String(), s.Token, profile, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert browser session: %w", err)
	}
	return nil
}

// Get returns the stored session for the browser
func (r *sessionRepo) Get(ctx context.Context, browserID uuid.UUID) (model.Session, error) {
	var s model.Session
	var profile []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_profile, created_at
		FROM browser_sessions
		WHERE browser_id = $1
	`, browserID.String()).Scan(&s.Token, &profile, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("query browser session: %w", err)
	}
	if err := json.Unmarshal(profile, &s.User); err != nil {
		return model.Session{}, fmt.Errorf("decode user profile: %w", err)
	}
	return s, nil
}

// Delete removes the browser's session; deleting a missing row is not an error
func (r *sessionRepo) Delete(ctx context.Context, browserID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM browser_sessions WHERE browser_id = $1`, browserID.String())
	if err != nil {
		return fmt.Errorf("delete browser session: %w", err)
	}
	return nil
}

// DeleteIfToken removes the browser's session if it still carries token
func (r *sessionRepo) DeleteIfToken(ctx context.Context, browserID uuid.UUID, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM browser_sessions WHERE browser_id = $1 AND token = $2
	`, browserID.String(), token)
	if err != nil {
		return false, fmt.Errorf("delete browser session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
