package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const (
	eyeHeight = 1.62
	rayStep   = 0.05
)

// lookDirection converts pitch and yaw in degrees into a unit vector. Yaw 0
// faces +z, yaw 90 faces -x and positive pitch looks down.
func lookDirection(pitch, yaw float64) mgl64.Vec3 {
	p := mgl64.DegToRad(pitch)
	y := mgl64.DegToRad(yaw)
	return mgl64.Vec3{
		-math.Sin(y) * math.Cos(p),
		-math.Sin(p),
		math.Cos(y) * math.Cos(p),
	}.Normalize()
}

// TargetBlock implements host.Raycaster: it walks from the player's eyes
// along their facing and returns the first solid block within maxDist.
func (w *World) TargetBlock(id uuid.UUID, maxDist float64) (int, int, int, bool) {
	w.mu.RLock()
	p, ok := w.byID[id]
	if !ok || !p.Alive {
		w.mu.RUnlock()
		return 0, 0, 0, false
	}
	loc := p.Location
	w.mu.RUnlock()

	d, ok := w.Dimension(loc.World)
	if !ok {
		return 0, 0, 0, false
	}
	eye := loc.Pos.Add(mgl64.Vec3{0, eyeHeight, 0})
	dir := lookDirection(loc.Pitch, loc.Yaw)
	for t := 0.0; t <= maxDist; t += rayStep {
		at := eye.Add(dir.Mul(t))
		x, y, z := int(math.Floor(at[0])), int(math.Floor(at[1])), int(math.Floor(at[2]))
		if y < 0 {
			return 0, 0, 0, false
		}
		if !d.Passable(x, y, z) {
			return x, y, z, true
		}
	}
	return 0, 0, 0, false
}
