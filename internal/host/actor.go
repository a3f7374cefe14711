package host

import (
	"sync"

	"github.com/google/uuid"
)

// ConsoleName is the name the console actor is known by.
const ConsoleName = "*Console*"

// Actor is whoever invoked an operation: a connected player or the console.
type Actor interface {
	Name() string
	// PlayerID returns the player identity, or false for non-player actors.
	PlayerID() (uuid.UUID, bool)
	Message(text string)
}

// Console is the non-player actor. Messages go to the configured sink.
type Console struct {
	mu   sync.Mutex
	sink func(string)
}

// NewConsole creates a console actor writing to sink. A nil sink drops
// messages.
func NewConsole(sink func(string)) *Console {
	return &Console{sink: sink}
}

func (c *Console) Name() string { return ConsoleName }

func (c *Console) PlayerID() (uuid.UUID, bool) { return uuid.Nil, false }

func (c *Console) Message(text string) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(text)
	}
}

// Redirect swaps the message sink and returns the previous one.
func (c *Console) Redirect(sink func(string)) func(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.sink
	c.sink = sink
	return prev
}

// IsPlayer reports whether the actor is the player with the given id.
func IsPlayer(actor Actor, id uuid.UUID) bool {
	if actor == nil {
		return false
	}
	own, ok := actor.PlayerID()
	return ok && own == id
}

// CheckPlayer returns the actor's current snapshot from the directory or a
// RequiresPlayer error for consoles and players that have gone offline.
func CheckPlayer(dir Directory, actor Actor) (PlayerSummary, error) {
	id, ok := actor.PlayerID()
	if !ok {
		return PlayerSummary{}, ErrRequiresPlayer
	}
	p, ok := dir.Player(id)
	if !ok || !p.Connected {
		return PlayerSummary{}, ErrRequiresPlayer
	}
	return p, nil
}

type playerActor struct {
	m Messenger
	p PlayerSummary
}

func (a playerActor) Name() string                { return a.p.Name }
func (a playerActor) PlayerID() (uuid.UUID, bool) { return a.p.UUID, true }
func (a playerActor) Message(text string)         { a.m.Message(a.p.UUID, text) }

// PlayerActor wraps a player snapshot as an Actor delivering messages
// through m. It is used when a player is checked or notified without having
// invoked anything.
func PlayerActor(m Messenger, p PlayerSummary) Actor {
	return playerActor{m: m, p: p}
}
