package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

// VehicleKinds are the vehicles a player can summon with ride.
var VehicleKinds = []string{"minecart", "boat", "horse", "pig"}

// Ride spawns a vehicle of kind under the player and mounts it.
func (w *World) Ride(p *Player, kind string) (host.Vehicle, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	known := false
	for _, k := range VehicleKinds {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		return host.Vehicle{}, fmt.Errorf("unknown vehicle %q", kind)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.Vehicle != nil {
		return host.Vehicle{}, fmt.Errorf("already riding a %s", p.Vehicle.Kind)
	}
	v := host.Vehicle{ID: uuid.New(), Kind: kind}
	w.vehicles[v.ID] = &vehicle{kind: kind, location: p.Location, rider: p.ID}
	p.Vehicle = &v
	return v, nil
}

// VehicleLocation reports where a vehicle is.
func (w *World) VehicleLocation(id uuid.UUID) (host.Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.vehicles[id]
	if !ok {
		return host.Location{}, false
	}
	return v.location, true
}

func (w *World) dismountLocked(p *Player) (host.Vehicle, bool) {
	if p.Vehicle == nil {
		return host.Vehicle{}, false
	}
	v := *p.Vehicle
	if state, ok := w.vehicles[v.ID]; ok {
		state.rider = uuid.Nil
	}
	p.Vehicle = nil
	return v, true
}

// Dismount implements host.Mover.
func (w *World) Dismount(id uuid.UUID) (host.Vehicle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.byID[id]
	if !ok {
		return host.Vehicle{}, false
	}
	return w.dismountLocked(p)
}

// TeleportVehicle implements host.Mover. Only empty vehicles can be moved.
func (w *World) TeleportVehicle(id uuid.UUID, to host.Location) error {
	if _, ok := w.Dimension(to.World); !ok {
		return fmt.Errorf("no dimension %q", to.World)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.vehicles[id]
	if !ok {
		return fmt.Errorf("no vehicle %s", id)
	}
	if v.rider != uuid.Nil {
		return fmt.Errorf("vehicle %s is occupied", id)
	}
	v.location = to
	return nil
}

// Mount implements host.Mover.
func (w *World) Mount(id uuid.UUID, vehicleID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.byID[id]
	if !ok || !p.Alive {
		return fmt.Errorf("player %s is not online", id)
	}
	v, ok := w.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("no vehicle %s", vehicleID)
	}
	if v.rider != uuid.Nil && v.rider != id {
		return fmt.Errorf("vehicle %s is occupied", vehicleID)
	}
	if p.Vehicle != nil && p.Vehicle.ID != vehicleID {
		w.dismountLocked(p)
	}
	v.rider = id
	v.location = p.Location
	p.Vehicle = &host.Vehicle{ID: vehicleID, Kind: v.kind}
	return nil
}
