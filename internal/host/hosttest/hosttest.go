// Package hosttest provides an in-memory host for tests.
package hosttest

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// World is a flat world: blocks below Ground are solid, everything else is
// air unless overridden.
type World struct {
	WorldName string
	Env       host.Environment
	SpawnLoc  host.Location
	Height    int
	Ground    int
	Blocks    map[[3]int]bool
}

func (w *World) Name() string                 { return w.WorldName }
func (w *World) Environment() host.Environment { return w.Env }
func (w *World) Spawn() host.Location          { return w.SpawnLoc }
func (w *World) MaxHeight() int                { return w.Height }

func (w *World) Passable(x, y, z int) bool {
	if passable, ok := w.Blocks[[3]int{x, y, z}]; ok {
		return passable
	}
	return y >= w.Ground
}

// SetColumn marks blocks at x,z between from and to inclusive.
func (w *World) SetColumn(x, z, from, to int, passable bool) {
	if w.Blocks == nil {
		w.Blocks = make(map[[3]int]bool)
	}
	for y := from; y <= to; y++ {
		w.Blocks[[3]int{x, y, z}] = passable
	}
}

// Move is a recorded teleport.
type Move struct {
	ID   uuid.UUID
	From host.Location
	To   host.Location
}

// Host implements host.Host over in-memory players and worlds.
type Host struct {
	mu       sync.Mutex
	order    []uuid.UUID
	players  map[uuid.UUID]*host.PlayerSummary
	worlds   []*World
	messages map[uuid.UUID][]string
	targets  map[uuid.UUID][3]int
	vehicles map[uuid.UUID]host.Location

	Moves      []Move
	Chunks     []host.Location
	Mounted    map[uuid.UUID]uuid.UUID
	OnTeleport func(id uuid.UUID, from, to host.Location)
	// TeleportErr, when set, makes every player teleport fail.
	TeleportErr error
}

// New creates a host with the given worlds, first world first.
func New(worlds ...*World) *Host {
	return &Host{
		players:  make(map[uuid.UUID]*host.PlayerSummary),
		worlds:   worlds,
		messages: make(map[uuid.UUID][]string),
		targets:  make(map[uuid.UUID][3]int),
		vehicles: make(map[uuid.UUID]host.Location),
		Mounted:  make(map[uuid.UUID]uuid.UUID),
	}
}

// FlatWorld builds a world with solid ground up to y=63.
func FlatWorld(name string, env host.Environment) *World {
	return &World{
		WorldName: name,
		Env:       env,
		SpawnLoc:  host.At(name, 0.5, 64, 0.5),
		Height:    256,
		Ground:    64,
	}
}

// AddPlayer connects a player at loc.
func (h *Host) AddPlayer(name string, loc host.Location) host.PlayerSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := &host.PlayerSummary{
		UUID:        uuid.NewMD5(uuid.Nil, []byte("OfflinePlayer:"+name)),
		Name:        name,
		DisplayName: name,
		Location:    loc,
		Connected:   true,
	}
	h.order = append(h.order, p.UUID)
	h.players[p.UUID] = p
	return *p
}

// RemovePlayer disconnects a player.
func (h *Host) RemovePlayer(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.players, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// SetDisplayName changes how a player is shown.
func (h *Host) SetDisplayName(id uuid.UUID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[id]; ok {
		p.DisplayName = name
	}
}

// SetTargetBlock sets the block a player is looking at.
func (h *Host) SetTargetBlock(id uuid.UUID, x, y, z int) {
	h.mu.Lock()
	h.targets[id] = [3]int{x, y, z}
	h.mu.Unlock()
}

// Seat puts a player into a new vehicle and returns its id.
func (h *Host) Seat(id uuid.UUID, kind string) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := host.Vehicle{ID: uuid.New(), Kind: kind}
	p := h.players[id]
	p.Vehicle = &v
	h.vehicles[v.ID] = p.Location
	h.Mounted[id] = v.ID
	return v.ID
}

// VehicleLocation reports where a vehicle is.
func (h *Host) VehicleLocation(id uuid.UUID) host.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vehicles[id]
}

// Actor returns an actor for a connected player.
func (h *Host) Actor(id uuid.UUID) host.Actor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &Actor{h: h, id: id, name: h.players[id].Name}
}

// Messages returns what a player has been told so far.
func (h *Host) Messages(id uuid.UUID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages[id]...)
}

// ClearMessages forgets all delivered messages.
func (h *Host) ClearMessages() {
	h.mu.Lock()
	h.messages = make(map[uuid.UUID][]string)
	h.mu.Unlock()
}

func (h *Host) OnlinePlayers() []host.PlayerSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.PlayerSummary, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, *h.players[id])
	}
	return out
}

func (h *Host) Player(id uuid.UUID) (host.PlayerSummary, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok {
		return host.PlayerSummary{}, false
	}
	return *p, true
}

func (h *Host) Worlds() []host.World {
	out := make([]host.World, len(h.worlds))
	for i, w := range h.worlds {
		out[i] = w
	}
	return out
}

func (h *Host) World(name string) (host.World, bool) {
	for _, w := range h.worlds {
		if w.WorldName == name {
			return w, true
		}
	}
	return nil, false
}

func (h *Host) TargetBlock(id uuid.UUID, _ float64) (int, int, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.targets[id]
	return b[0], b[1], b[2], ok
}

func (h *Host) Message(id uuid.UUID, text string) {
	h.mu.Lock()
	h.messages[id] = append(h.messages[id], text)
	h.mu.Unlock()
}

func (h *Host) LoadChunk(at host.Location) {
	h.mu.Lock()
	h.Chunks = append(h.Chunks, at)
	h.mu.Unlock()
}

func (h *Host) Dismount(id uuid.UUID) (host.Vehicle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok || p.Vehicle == nil {
		return host.Vehicle{}, false
	}
	v := *p.Vehicle
	p.Vehicle = nil
	delete(h.Mounted, id)
	return v, true
}

func (h *Host) TeleportVehicle(vehicle uuid.UUID, to host.Location) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.vehicles[vehicle]; !ok {
		return fmt.Errorf("no vehicle %s", vehicle)
	}
	h.vehicles[vehicle] = to
	return nil
}

func (h *Host) Mount(id uuid.UUID, vehicle uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok {
		return fmt.Errorf("no player %s", id)
	}
	p.Vehicle = &host.Vehicle{ID: vehicle}
	h.Mounted[id] = vehicle
	return nil
}

// Teleport moves a player and calls OnTeleport, if set, once the
// lock is released.
func (h *Host) Teleport(id uuid.UUID, to host.Location) error {
	h.mu.Lock()
	p, ok := h.players[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("no player %s", id)
	}
	if h.TeleportErr != nil {
		err := h.TeleportErr
		h.mu.Unlock()
		return err
	}
	from := p.Location
	p.Location = to
	h.Moves = append(h.Moves, Move{ID: id, From: from, To: to})
	hook := h.OnTeleport
	h.mu.Unlock()
	if hook != nil {
		hook(id, from, to)
	}
	return nil
}

// Actor is a connected player acting on the host.
type Actor struct {
	h    *Host
	id   uuid.UUID
	name string
}

func (a *Actor) Name() string { return a.name }

func (a *Actor) PlayerID() (uuid.UUID, bool) { return a.id, true }

func (a *Actor) Message(text string) { a.h.Message(a.id, text) }
