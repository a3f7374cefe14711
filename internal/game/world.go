package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// Listener is told about player lifecycle changes. Calls happen after the
// world lock is released, so listeners may query the world.
type Listener interface {
	HandleJoin(id uuid.UUID)
	HandleQuit(id uuid.UUID)
	HandleTeleport(id uuid.UUID, from, to host.Location)
}

type vehicle struct {
	kind     string
	location host.Location
	rider    uuid.UUID
}

type World struct {
	mu               sync.RWMutex
	dimMu            sync.RWMutex
	dimensions       []*Dimension
	players          map[string]*Player
	byID             map[uuid.UUID]*Player
	playerOrder      []string
	vehicles         map[uuid.UUID]*vehicle
	accounts         *AccountManager
	listeners        []Listener
	forceAllAdmin    bool
	disabledCommands map[string]bool
}

// PlayerLocation describes where a connected player stands.
type PlayerLocation struct {
	Name     string
	Location host.Location
}

// NewWorld creates a world from its dimensions. The first dimension is the
// main one new players spawn in.
func NewWorld(dimensions ...*Dimension) (*World, error) {
	if len(dimensions) == 0 {
		return nil, fmt.Errorf("world needs at least one dimension")
	}
	seen := make(map[string]bool, len(dimensions))
	for _, d := range dimensions {
		if seen[d.Name()] {
			return nil, fmt.Errorf("dimension %s defined twice", d.Name())
		}
		seen[d.Name()] = true
	}
	return &World{
		dimensions:  dimensions,
		players:     make(map[string]*Player),
		byID:        make(map[uuid.UUID]*Player),
		playerOrder: make([]string, 0),
		vehicles:    make(map[uuid.UUID]*vehicle),
	}, nil
}

// ConfigurePrivileges applies global administrative overrides.
func (w *World) ConfigurePrivileges(forceAllAdmin bool) {
	w.mu.Lock()
	w.forceAllAdmin = forceAllAdmin
	w.mu.Unlock()
}

// SetCommandDisabled toggles whether a command is available to players.
func (w *World) SetCommandDisabled(name string, disabled bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return
	}
	w.mu.Lock()
	if disabled {
		if w.disabledCommands == nil {
			w.disabledCommands = make(map[string]bool)
		}
		w.disabledCommands[normalized] = true
	} else if w.disabledCommands != nil {
		delete(w.disabledCommands, normalized)
		if len(w.disabledCommands) == 0 {
			w.disabledCommands = nil
		}
	}
	w.mu.Unlock()
}

// CommandDisabled reports whether the named command has been disabled.
func (w *World) CommandDisabled(name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return false
	}
	w.mu.RLock()
	disabled := w.disabledCommands != nil && w.disabledCommands[normalized]
	w.mu.RUnlock()
	return disabled
}

// AttachAccountManager wires the account persistence layer into the world.
func (w *World) AttachAccountManager(accounts *AccountManager) {
	w.mu.Lock()
	w.accounts = accounts
	w.mu.Unlock()
}

// AddListener registers l for lifecycle notifications.
func (w *World) AddListener(l Listener) {
	w.mu.Lock()
	w.listeners = append(w.listeners, l)
	w.mu.Unlock()
}

// AccountStats exposes account metadata for the provided name.
func (w *World) AccountStats(name string) (AccountStats, bool) {
	w.mu.RLock()
	accounts := w.accounts
	w.mu.RUnlock()
	if accounts == nil {
		return AccountStats{}, false
	}
	return accounts.Stats(name)
}

// Dimension returns the named dimension.
func (w *World) Dimension(name string) (*Dimension, bool) {
	w.dimMu.RLock()
	defer w.dimMu.RUnlock()
	for _, d := range w.dimensions {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Dimensions lists all dimensions, main one first.
func (w *World) Dimensions() []*Dimension {
	w.dimMu.RLock()
	defer w.dimMu.RUnlock()
	return append([]*Dimension(nil), w.dimensions...)
}

// AddDimension loads another dimension while the server runs. Dimensions
// are never unloaded, since players may stand in them.
func (w *World) AddDimension(d *Dimension) error {
	w.dimMu.Lock()
	defer w.dimMu.Unlock()
	for _, existing := range w.dimensions {
		if existing.Name() == d.Name() {
			return fmt.Errorf("dimension %s defined twice", d.Name())
		}
	}
	w.dimensions = append(w.dimensions, d)
	return nil
}

func (w *World) mainSpawn() host.Location {
	w.dimMu.RLock()
	defer w.dimMu.RUnlock()
	return w.dimensions[0].Spawn()
}

// ActivePlayer returns the currently connected player with the provided name.
// The second return value reports whether a living session was found.
func (w *World) ActivePlayer(name string) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[name]
	if !ok || !p.Alive {
		return nil, false
	}
	return p, true
}

// PrepareTakeover detaches the active session for the provided player so that
// another connection can assume control. It returns the previous session and
// output channel so the caller can notify and close them.
func (w *World) PrepareTakeover(name string) (*TelnetSession, chan string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	existing, ok := w.players[name]
	if !ok || !existing.Alive {
		return nil, nil, false
	}

	oldSession := existing.Session
	oldOutput := existing.Output
	existing.Session = nil
	existing.Output = nil
	existing.Alive = false
	w.removePlayerOrderLocked(name)

	return oldSession, oldOutput, true
}

// AddPlayerForTest inserts a player into the world's tracking structures.
func (w *World) AddPlayerForTest(p *Player) {
	w.mu.Lock()
	if p.Account == "" {
		p.Account = p.Name
	}
	if p.ID == uuid.Nil {
		p.ID = PlayerID(p.Account)
	}
	if p.Location.World == "" {
		p.Location = w.mainSpawn()
	}
	p.Alive = true
	p.JoinedAt = time.Now()
	if w.forceAllAdmin {
		p.IsAdmin = true
	}
	w.players[p.Name] = p
	w.byID[p.ID] = p
	w.removePlayerOrderLocked(p.Name)
	w.playerOrder = append(w.playerOrder, p.Name)
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()
	for _, l := range listeners {
		l.HandleJoin(p.ID)
	}
}

func (w *World) addPlayer(name string, session *TelnetSession, isAdmin bool, profile PlayerProfile) (*Player, error) {
	loc := w.mainSpawn()
	if profile.Location != nil {
		if _, ok := w.Dimension(profile.Location.World); ok {
			loc = *profile.Location
		}
	}

	w.mu.Lock()
	if w.forceAllAdmin {
		isAdmin = true
	}
	now := time.Now()
	p, ok := w.players[name]
	if ok && p.Alive {
		w.mu.Unlock()
		return nil, fmt.Errorf("%s is already connected", name)
	}
	if !ok {
		p = &Player{Name: name, Account: name, ID: PlayerID(name)}
		w.players[name] = p
	}
	p.Session = session
	p.Output = make(chan string, 32)
	p.Location = loc
	p.Alive = true
	p.IsAdmin = isAdmin
	p.DisplayName = profile.DisplayName
	p.JoinedAt = now
	w.byID[p.ID] = p
	w.removePlayerOrderLocked(name)
	w.playerOrder = append(w.playerOrder, name)
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	if d, ok := w.Dimension(loc.World); ok {
		d.LoadChunk(loc)
	}
	for _, l := range listeners {
		l.HandleJoin(p.ID)
	}
	return p, nil
}

func (w *World) removePlayer(name string) {
	w.mu.Lock()
	p, ok := w.players[name]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.players, name)
	delete(w.byID, p.ID)
	w.removePlayerOrderLocked(name)
	if p.Vehicle != nil {
		if v, ok := w.vehicles[p.Vehicle.ID]; ok {
			v.rider = uuid.Nil
		}
		p.Vehicle = nil
	}
	if p.Output != nil {
		close(p.Output)
		p.Output = nil
	}
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()
	for _, l := range listeners {
		l.HandleQuit(p.ID)
	}
}

// PersistPlayer saves where the player stands so the next login resumes
// there.
func (w *World) PersistPlayer(p *Player) {
	w.mu.RLock()
	accounts := w.accounts
	loc := p.Location
	profile := PlayerProfile{Location: &loc, DisplayName: p.DisplayName}
	account := p.Account
	w.mu.RUnlock()
	if accounts == nil {
		return
	}
	if err := accounts.SaveProfile(account, profile); err != nil {
		fmt.Printf("failed to persist player %s: %v\n", account, err)
	}
}

// SetDisplayName changes how a player is shown to others.
func (w *World) SetDisplayName(p *Player, name string) {
	w.mu.Lock()
	p.DisplayName = strings.TrimSpace(name)
	w.mu.Unlock()
}

// SetRotation turns the player in place.
func (w *World) SetRotation(p *Player, pitch, yaw float64) {
	w.mu.Lock()
	p.Location = p.Location.WithRotation(pitch, yaw)
	w.mu.Unlock()
}

// BroadcastToDimension messages every player in a dimension except one.
func (w *World) BroadcastToDimension(dimension, msg string, except *Player) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, p := range w.players {
		if p == except || !p.Alive || p.Location.World != dimension {
			continue
		}
		p.Message(msg)
	}
}

// BroadcastToAll messages every connected player except one.
func (w *World) BroadcastToAll(msg string, except *Player) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, p := range w.players {
		if p == except || !p.Alive {
			continue
		}
		p.Message(msg)
	}
}

// ListPlayers returns connected player names in login order.
func (w *World) ListPlayers() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.playerOrder))
	for _, name := range w.playerOrder {
		if p, ok := w.players[name]; ok && p.Alive {
			names = append(names, p.Name)
		}
	}
	return names
}

// PlayerLocations returns the set of connected players and their positions in login order.
func (w *World) PlayerLocations() []PlayerLocation {
	w.mu.RLock()
	defer w.mu.RUnlock()
	locations := make([]PlayerLocation, 0, len(w.playerOrder))
	for _, name := range w.playerOrder {
		p, ok := w.players[name]
		if !ok || !p.Alive {
			continue
		}
		locations = append(locations, PlayerLocation{Name: p.Name, Location: p.Location})
	}
	return locations
}

func (w *World) removePlayerOrderLocked(name string) {
	for i, existing := range w.playerOrder {
		if existing == name {
			w.playerOrder = append(w.playerOrder[:i], w.playerOrder[i+1:]...)
			return
		}
	}
}

// OnlinePlayers implements host.Directory.
func (w *World) OnlinePlayers() []host.PlayerSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]host.PlayerSummary, 0, len(w.playerOrder))
	for _, name := range w.playerOrder {
		if p, ok := w.players[name]; ok && p.Alive {
			out = append(out, p.summary())
		}
	}
	return out
}

// Player implements host.Directory.
func (w *World) Player(id uuid.UUID) (host.PlayerSummary, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.byID[id]
	if !ok || !p.Alive {
		return host.PlayerSummary{}, false
	}
	return p.summary(), true
}

// Worlds implements host.Worlds.
func (w *World) Worlds() []host.World {
	dims := w.Dimensions()
	out := make([]host.World, len(dims))
	for i, d := range dims {
		out[i] = d
	}
	return out
}

// World implements host.Worlds.
func (w *World) World(name string) (host.World, bool) {
	d, ok := w.Dimension(name)
	if !ok {
		return nil, false
	}
	return d, true
}

// Message implements host.Messenger.
func (w *World) Message(id uuid.UUID, text string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if p, ok := w.byID[id]; ok && p.Alive {
		p.Message(text)
	}
}

// LoadChunk implements host.Mover.
func (w *World) LoadChunk(at host.Location) {
	if d, ok := w.Dimension(at.World); ok {
		d.LoadChunk(at)
	}
}

// Teleport implements host.Mover. A player still riding something is
// dismounted first and the vehicle stays behind.
func (w *World) Teleport(id uuid.UUID, to host.Location) error {
	if _, ok := w.Dimension(to.World); !ok {
		return fmt.Errorf("no dimension %q", to.World)
	}
	w.mu.Lock()
	p, ok := w.byID[id]
	if !ok || !p.Alive {
		w.mu.Unlock()
		return fmt.Errorf("player %s is not online", id)
	}
	w.dismountLocked(p)
	from := p.Location
	p.Location = to
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	for _, l := range listeners {
		l.HandleTeleport(id, from, to)
	}
	return nil
}

// IsAdmin reports whether the online player with id has administrator
// status.
func (w *World) IsAdmin(id uuid.UUID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.byID[id]
	return ok && p.Alive && p.IsAdmin
}
