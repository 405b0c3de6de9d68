package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/paydesk/server/internal/model"
)

// MemorySessionRepo keeps sessions in process memory. Used in dev mode and tests.
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]model.Session
}

// NewMemorySessionRepo creates an empty in-memory SessionRepo
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{sessions: make(map[uuid.UUID]model.Session)}
}

func (r *MemorySessionRepo) Put(_ context.Context, browserID uuid.UUID, s model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[browserID] = s
	return nil
}

func (r *MemorySessionRepo) Get(_ context.Context, browserID uuid.UUID) (model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[browserID]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemorySessionRepo) Delete(_ context.Context, browserID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, browserID)
	return nil
}

func (r *MemorySessionRepo) DeleteIfToken(_ context.Context, browserID uuid.UUID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[browserID]
	if !ok || s.Token != token {
		return false, nil
	}
	delete(r.sessions, browserID)
	return true, nil
}
