package intake

// store.go keeps intake sessions in memory and evicts idle ones.
//
// Eviction is memory hygiene only. Nothing is persisted: an evicted or
// restarted session is gone.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

// DefaultMaxSessions is the session cap used when none is configured.
const DefaultMaxSessions = 1000

// Store holds sessions by id.
type Store struct {
	maxSessions int
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store that holds at most maxSessions sessions.
func NewStore(maxSessions int) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		maxSessions: maxSessions,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new session.
func (st *Store) Create() (*Session, error) {
	st.mu.Lock()
	if len(st.sessions) >= st.maxSessions {
		st.mu.Unlock()
		return nil, fmt.Errorf("create session: %w (max %d)", ErrTooManySessions, st.maxSessions)
	}
	s := NewSession(uuid.NewString(), st.now)
	st.sessions[s.ID()] = s
	live := len(st.sessions)
	st.mu.Unlock()

	metrics.IncSessionCreated(live)
	slog.Info("session created", "session_id", s.ID(), "live_sessions", live)
	return s, nil
}

// Get returns a session by id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete drops a session. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	live := len(st.sessions)
	st.mu.Unlock()

	if ok {
		metrics.SetSessionsLive(live)
		slog.Info("session deleted", "session_id", id, "live_sessions", live)
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts every session idle for longer than ttl and returns the
// evicted ids.
func (st *Store) Sweep(ttl time.Duration) []string {
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	var evicted []string
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			evicted = append(evicted, id)
		}
	}
	live := len(st.sessions)
	st.mu.Unlock()

	metrics.AddSessionsEvicted(len(evicted), live)
	return evicted
}

// StartSweeper evicts idle sessions every interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (st *Store) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	slog.Info("session sweeper started", "ttl", ttl.String(), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			evicted := st.Sweep(ttl)
			if len(evicted) > 0 {
				slog.Info("evicted idle sessions",
					"sessions_evicted", len(evicted),
					"live_sessions", st.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
