package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/paydesk/server/internal/db"
	"github.com/paydesk/server/internal/repo"
)

// OpenSessionRepo returns the Postgres session repository when DATABASE_URL is
// set, migrated and emptied, and the in-memory one otherwise.
func OpenSessionRepo(ctx context.Context) (repo.SessionRepo, *sql.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return repo.NewMemorySessionRepo(), nil, nil
	}
	database, err := db.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	if err := TruncateSessions(ctx, database); err != nil {
		database.Close()
		return nil, nil, err
	}
	return repo.NewSessionRepo(database), database, nil
}

// TruncateSessions empties the session table for a clean test state.
func TruncateSessions(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE browser_sessions")
	if err != nil {
		return fmt.Errorf("truncate browser_sessions: %w", err)
	}
	return nil
}
