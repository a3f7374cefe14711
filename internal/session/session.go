// Package session keeps per-player teleport state: the location history
// used by /return, the single-slot suppression token for teleports we caused
// ourselves, and the call/bring handshake bookkeeping.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// Settings tunes the session windows.
type Settings struct {
	HistorySize     int
	BringableWindow time.Duration
	RequestCooldown time.Duration
	ReconnectGrace  time.Duration
	MaxAge          time.Duration
	SweepInterval   time.Duration
	// IgnoreRadiusSquared is how close a teleport must land to the
	// suppression token to be treated as ours.
	IgnoreRadiusSquared float64
}

// DefaultSettings returns the stock windows.
func DefaultSettings() Settings {
	return Settings{
		HistorySize:         10,
		BringableWindow:     5 * time.Minute,
		RequestCooldown:     30 * time.Second,
		ReconnectGrace:      time.Minute,
		MaxAge:              10 * 24 * time.Hour,
		SweepInterval:       time.Minute,
		IgnoreRadiusSquared: 2,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HistorySize <= 0 {
		s.HistorySize = d.HistorySize
	}
	if s.BringableWindow <= 0 {
		s.BringableWindow = d.BringableWindow
	}
	if s.RequestCooldown <= 0 {
		s.RequestCooldown = d.RequestCooldown
	}
	if s.ReconnectGrace <= 0 {
		s.ReconnectGrace = d.ReconnectGrace
	}
	if s.MaxAge <= 0 {
		s.MaxAge = d.MaxAge
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = d.SweepInterval
	}
	if s.IgnoreRadiusSquared <= 0 {
		s.IgnoreRadiusSquared = d.IgnoreRadiusSquared
	}
	return s
}

// Session is the teleport state of one player. It references other players
// by id only so it survives reconnects.
type Session struct {
	mu       sync.Mutex
	owner    uuid.UUID
	settings Settings
	now      func() time.Time

	history   []host.Location
	ignore    *host.Location
	bringable map[uuid.UUID]time.Time
	requests  map[uuid.UUID]time.Time
	goneAt    time.Time
}

func newSession(owner uuid.UUID, settings Settings, now func() time.Time) *Session {
	return &Session{
		owner:     owner,
		settings:  settings,
		now:       now,
		bringable: make(map[uuid.UUID]time.Time),
		requests:  make(map[uuid.UUID]time.Time),
	}
}

// Owner is the id of the player the session belongs to.
func (s *Session) Owner() uuid.UUID { return s.owner }

// Remember pushes a location onto the history, most recent first. Pushing the
// current head again is a no-op and the oldest entry falls off when full.
func (s *Session) Remember(loc host.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember(loc)
}

func (s *Session) remember(loc host.Location) {
	if len(s.history) > 0 && s.history[0].Equal(loc) {
		return
	}
	s.history = append(s.history, host.Location{})
	copy(s.history[1:], s.history)
	s.history[0] = loc
	if len(s.history) > s.settings.HistorySize {
		s.history = s.history[:s.settings.HistorySize]
	}
}

// PopHistory removes and returns the most recent location.
func (s *Session) PopHistory() (host.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return host.Location{}, false
	}
	loc := s.history[0]
	s.history = s.history[1:]
	return loc, true
}

// History returns a copy of the stored locations, most recent first.
func (s *Session) History() []host.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]host.Location, len(s.history))
	copy(out, s.history)
	return out
}

// SetIgnoreLocation arms the suppression token for the next teleport.
func (s *Session) SetIgnoreLocation(loc host.Location) {
	s.mu.Lock()
	s.ignore = &loc
	s.mu.Unlock()
}

// ClearIgnoreLocation disarms the suppression token.
func (s *Session) ClearIgnoreLocation() {
	s.mu.Lock()
	s.ignore = nil
	s.mu.Unlock()
}

// IgnoreLocation returns the armed suppression token, if any.
func (s *Session) IgnoreLocation() (host.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ignore == nil {
		return host.Location{}, false
	}
	return *s.ignore, true
}

// ObserveTeleport is called for every completed teleport of the owner. A
// move landing on the armed token consumes it and is not recorded. Any
// other move clears the token and records where the player came from.
// It reports whether the history changed.
func (s *Session) ObserveTeleport(from, to host.Location) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ignore != nil {
		token := *s.ignore
		s.ignore = nil
		if token.SameWorld(to) && token.DistanceSquared(to) <= s.settings.IgnoreRadiusSquared {
			return false
		}
	}
	before := len(s.history)
	var head host.Location
	if before > 0 {
		head = s.history[0]
	}
	s.remember(from)
	return len(s.history) != before || !head.Equal(s.history[0])
}

// CheckRequest records an outgoing teleport request to target. A repeat
// inside the cooldown fails with TooSoon and leaves the original timestamp in
// place, so the cooldown is never extended by spamming.
func (s *Session) CheckRequest(target uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if at, ok := s.requests[target]; ok && now.Sub(at) < s.settings.RequestCooldown {
		return host.ErrTooSoon
	}
	s.requests[target] = now
	for id, at := range s.requests {
		if now.Sub(at) >= s.settings.RequestCooldown && id != target {
			delete(s.requests, id)
		}
	}
	return nil
}

// AddBringable lets the player with the given id pull the owner to them.
func (s *Session) AddBringable(id uuid.UUID) {
	s.mu.Lock()
	s.bringable[id] = s.now()
	s.mu.Unlock()
}

// IsBringable checks and consumes a bring grant in one step. Expired grants
// are dropped and reported as absent.
func (s *Session) IsBringable(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.bringable[id]
	if !ok {
		return false
	}
	delete(s.bringable, id)
	return s.now().Sub(at) < s.settings.BringableWindow
}

// Disconnected records that the owner left and drops the suppression
// token, which only ever covers a move in flight.
func (s *Session) Disconnected() {
	s.mu.Lock()
	s.goneAt = s.now()
	s.ignore = nil
	s.mu.Unlock()
}

// Reconnected clears the bring grants when the owner was away longer than
// the grace period. History and requests survive.
func (s *Session) Reconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.goneAt.IsZero() && s.now().Sub(s.goneAt) >= s.settings.ReconnectGrace {
		s.bringable = make(map[uuid.UUID]time.Time)
	}
	s.goneAt = time.Time{}
}

// IsRecent reports whether the session is still worth keeping.
func (s *Session) IsRecent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goneAt.IsZero() {
		return true
	}
	return s.now().Sub(s.goneAt) < s.settings.MaxAge
}
