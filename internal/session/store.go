package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// Store owns every Session, keyed by player id.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	settings Settings

	clockMu sync.RWMutex
	now     func() time.Time

	online func(uuid.UUID) bool
	logger *log.Logger
}

// NewStore creates an empty store. dir is used by Sweep to tell which owners
// are still connected; it may be nil, in which case only disconnect
// timestamps are consulted.
func NewStore(settings Settings, dir host.Directory, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		sessions: make(map[uuid.UUID]*Session),
		settings: settings.withDefaults(),
		now:      time.Now,
		logger:   logger,
	}
	if dir != nil {
		s.online = func(id uuid.UUID) bool {
			p, ok := dir.Player(id)
			return ok && p.Connected
		}
	}
	return s
}

// SetClock replaces the time source. Sessions created earlier keep using the
// clock through the store, so this is safe to call at any point.
func (s *Store) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	s.now = now
	s.clockMu.Unlock()
}

func (s *Store) clock() time.Time {
	s.clockMu.RLock()
	now := s.now
	s.clockMu.RUnlock()
	return now()
}

// Settings returns the effective settings.
func (s *Store) Settings() Settings { return s.settings }

// Session returns the session for id, creating it on first use.
func (s *Store) Session(id uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := newSession(id, s.settings, s.clock)
	s.sessions[id] = sess
	return sess
}

// Lookup returns an existing session without creating one.
func (s *Store) Lookup(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Connected is called when a player joins.
func (s *Store) Connected(id uuid.UUID) {
	s.Session(id).Reconnected()
}

// Disconnected is called when a player leaves.
func (s *Store) Disconnected(id uuid.UUID) {
	if sess, ok := s.Lookup(id); ok {
		sess.Disconnected()
	}
}

// Sweep evicts sessions whose owner is offline and has been gone longer
// than the max age. The store lock is held for the whole pass.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if s.online != nil && s.online(id) {
			continue
		}
		if !sess.IsRecent() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.settings.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Printf("evicted %d stale sessions", n)
			}
		}
	}
}
