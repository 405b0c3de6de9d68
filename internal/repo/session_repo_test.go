package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/server/internal/model"
)

func newMockRepo(t *testing.T) (SessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepo(db), mock
}

func TestSessionRepo_PutSingleStatement(t *testing.T) {
	r, mock := newMockRepo(t)
	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO browser_sessions").
		WithArgs(id.String(), "tok-1", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Put(context.Background(), id, model.Session{
		Token:     "tok-1",
		User:      model.User{ID: "u1", Email: "a@b.com"},
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Get(t *testing.T) {
	r, mock := newMockRepo(t)
	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"token", "user_profile", "created_at"}).
		AddRow("tok-1", []byte(`{"id":"u1","name":"Ama","email":"a@b.com","role":"ADMIN","organizationName":"Acme"}`), now)
	mock.ExpectQuery("SELECT token, user_profile, created_at FROM browser_sessions").
		WithArgs(id.String()).
		WillReturnRows(rows)

	s, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, "Acme", s.User.OrganizationName)
	assert.Equal(t, now, s.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_GetMissing(t *testing.T) {
	r, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT token, user_profile, created_at FROM browser_sessions").
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_profile", "created_at"}))

	_, err := r.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_GetQueryError(t *testing.T) {
	r, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT token").WillReturnError(errors.New("connection reset"))

	_, err := r.Get(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_DeleteIfToken(t *testing.T) {
	r, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM browser_sessions WHERE browser_id = \\$1 AND token = \\$2").
		WithArgs(id.String(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM browser_sessions WHERE browser_id = \\$1 AND token = \\$2").
		WithArgs(id.String(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := r.DeleteIfToken(context.Background(), id, "tok-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.DeleteIfToken(context.Background(), id, "tok-1")
	require.NoError(t, err)
	assert.False(t, removed, "second delete must be a no-op")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySessionRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemorySessionRepo()
	id := uuid.New()

	_, err := r.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, r.Put(ctx, id, model.Session{Token: "t1"}))
	removed, err := r.DeleteIfToken(ctx, id, "other")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = r.DeleteIfToken(ctx, id, "t1")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, r.Delete(ctx, id), "deleting a missing session is a no-op")
}
