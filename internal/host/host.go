// Package host describes what the command core needs from the game server it
// runs inside: a directory of connected players, the loaded worlds, and a
// handful of mutations (teleport, chunk loading, vehicle handling).
package host

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Environment is the dimension type of a world.
type Environment int

const (
	EnvNormal Environment = iota
	EnvNether
	EnvEnd
)

func (e Environment) String() string {
	switch e {
	case EnvNether:
		return "nether"
	case EnvEnd:
		return "end"
	default:
		return "normal"
	}
}

// ParseEnvironment accepts the names used in configuration files.
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal", "overworld":
		return EnvNormal, nil
	case "nether":
		return EnvNether, nil
	case "end", "the_end", "skylands":
		return EnvEnd, nil
	}
	return EnvNormal, fmt.Errorf("unknown environment %q", name)
}

// Vehicle is an entity a player can ride.
type Vehicle struct {
	ID   uuid.UUID
	Kind string
}

// PlayerSummary is a snapshot of a connected player taken when it was
// requested. It is never updated in place.
type PlayerSummary struct {
	UUID        uuid.UUID
	Name        string
	DisplayName string
	Location    Location
	Vehicle     *Vehicle
	Connected   bool
}

// World is a loaded dimension.
type World interface {
	Name() string
	Environment() Environment
	Spawn() Location
	MaxHeight() int
	// Passable reports whether a player can stand inside the block.
	Passable(x, y, z int) bool
}

// Directory lists connected players in a stable iteration order.
type Directory interface {
	OnlinePlayers() []PlayerSummary
	Player(id uuid.UUID) (PlayerSummary, bool)
}

// Worlds gives access to loaded worlds, first world first.
type Worlds interface {
	Worlds() []World
	World(name string) (World, bool)
}

// Raycaster finds the solid block a player is looking at.
type Raycaster interface {
	TargetBlock(id uuid.UUID, maxDistance float64) (x, y, z int, ok bool)
}

// Messenger delivers text to a connected player.
type Messenger interface {
	Message(id uuid.UUID, text string)
}

// Mover performs entity movement on the host.
type Mover interface {
	// Teleport moves a player and fires the host's teleport notification.
	Teleport(id uuid.UUID, to Location) error
	// LoadChunk makes sure the chunk holding the location is loaded.
	LoadChunk(at Location)
	// Dismount ejects the player from its vehicle, if any.
	Dismount(id uuid.UUID) (Vehicle, bool)
	TeleportVehicle(vehicle uuid.UUID, to Location) error
	Mount(id uuid.UUID, vehicle uuid.UUID) error
}

// Host is the full surface a game server exposes to the core.
type Host interface {
	Directory
	Worlds
	Raycaster
	Messenger
	Mover
}

// FindPlayer returns the connected player with the given id from a directory
// snapshot.
func FindPlayer(players []PlayerSummary, id uuid.UUID) (PlayerSummary, bool) {
	for _, p := range players {
		if p.UUID == id {
			return p, true
		}
	}
	return PlayerSummary{}, false
}
