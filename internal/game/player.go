package game

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// Player represents a connected player in the world.
type Player struct {
	Name        string
	Account     string
	ID          uuid.UUID
	DisplayName string
	Session     *TelnetSession
	Location    host.Location
	Vehicle     *host.Vehicle
	Output      chan string
	Alive       bool
	IsAdmin     bool
	JoinedAt    time.Time
	history     []time.Time
}

// PlayerProfile captures persistent player state.
type PlayerProfile struct {
	Location    *host.Location
	DisplayName string
}

// PlayerID derives the stable identity of an account name. Names are
// case-folded so "Alice" and "alice" are the same player.
func PlayerID(account string) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte("commandbook:player:"+strings.ToLower(account)))
}

const (
	commandLimit  = 5
	commandWindow = time.Second
)

func (p *Player) allowCommand(now time.Time) bool {
	cutoff := now.Add(-commandWindow)
	filtered := p.history[:0]
	for _, t := range p.history {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	p.history = filtered
	if len(p.history) >= commandLimit {
		return false
	}
	p.history = append(p.history, now)
	return true
}

// Message queues a line for the player without blocking. Output for a
// player whose queue is full is dropped. Callers outside the player's own
// command loop go through World.Message, which guards against the queue
// being closed.
func (p *Player) Message(text string) {
	if p.Output == nil {
		return
	}
	select {
	case p.Output <- Ansi("\r\n" + text):
	default:
	}
}

type playerActor struct{ p *Player }

func (a playerActor) Name() string                { return a.p.Name }
func (a playerActor) PlayerID() (uuid.UUID, bool) { return a.p.ID, true }
func (a playerActor) Message(text string)         { a.p.Message(text) }

// Actor returns the player as a command actor.
func (p *Player) Actor() host.Actor { return playerActor{p} }

func (p *Player) summary() host.PlayerSummary {
	s := host.PlayerSummary{
		UUID:        p.ID,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Location:    p.Location,
		Connected:   p.Alive,
	}
	if s.DisplayName == "" {
		s.DisplayName = p.Name
	}
	if p.Vehicle != nil {
		v := *p.Vehicle
		s.Vehicle = &v
	}
	return s
}
