package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paydesk/server/internal/model"
)

const challengeIdleExpiry = 15 * time.Minute

// challenge is one browser's in-flight login exchange
type challenge struct {
	model.OtpChallenge
	password   string
	step       Step
	outcome    Outcome
	lastSentAt time.Time
	touchedAt  time.Time
}

// challengeTable holds login exchanges in memory only
type challengeTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*challenge
	idle    time.Duration
}

func newChallengeTable(idle time.Duration) *challengeTable {
	if idle <= 0 {
		idle = challengeIdleExpiry
	}
	return &challengeTable{
		entries: make(map[uuid.UUID]*challenge),
		idle:    idle,
	}
}

// get returns a copy of the live challenge for id
func (t *challengeTable) get(id uuid.UUID, now time.Time) (challenge, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.live(id, now)
	if !ok {
		return challenge{}, false
	}
	return *c, true
}

// live must be called with mu held
func (t *challengeTable) live(id uuid.UUID, now time.Time) (*challenge, bool) {
	c, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	if now.Sub(c.touchedAt) > t.idle {
		delete(t.entries, id)
		return nil, false
	}
	return c, true
}

func (t *challengeTable) put(id uuid.UUID, c challenge, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c.touchedAt = now
	t.entries[id] = &c
}

// update applies fn to the live challenge for id under the lock
func (t *challengeTable) update(id uuid.UUID, now time.Time, fn func(c *challenge) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.live(id, now)
	if !ok {
		return ErrNoChallenge
	}
	if err := fn(c); err != nil {
		return err
	}
	c.touchedAt = now
	return nil
}

func (t *challengeTable) remove(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// sweep drops idle challenges and reports how many were removed
func (t *challengeTable) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, c := range t.entries {
		if now.Sub(c.touchedAt) > t.idle {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

func (t *challengeTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// runSweeper sweeps on every tick until ctx is done
func (t *challengeTable) runSweeper(ctx context.Context, every time.Duration, now func() time.Time) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep(now())
		}
	}
}
