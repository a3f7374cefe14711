package host

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Location is a position inside a named world together with the facing of
// whoever stands there.
type Location struct {
	World string
	Pos   mgl64.Vec3
	Pitch float64
	Yaw   float64
}

// At builds a location with no rotation.
func At(world string, x, y, z float64) Location {
	return Location{World: world, Pos: mgl64.Vec3{x, y, z}}
}

func (l Location) X() float64 { return l.Pos[0] }
func (l Location) Y() float64 { return l.Pos[1] }
func (l Location) Z() float64 { return l.Pos[2] }

// Block returns the coordinates of the block containing the location.
func (l Location) Block() (int, int, int) {
	return int(math.Floor(l.Pos[0])), int(math.Floor(l.Pos[1])), int(math.Floor(l.Pos[2]))
}

// DistanceSquared is the squared euclidean distance between both positions.
// Worlds are not compared.
func (l Location) DistanceSquared(other Location) float64 {
	return l.Pos.Sub(other.Pos).LenSqr()
}

// SameWorld reports whether both locations are in the same world.
func (l Location) SameWorld(other Location) bool {
	return l.World == other.World
}

// Equal compares world, position and rotation exactly.
func (l Location) Equal(other Location) bool {
	return l.World == other.World && l.Pos == other.Pos && l.Pitch == other.Pitch && l.Yaw == other.Yaw
}

// WithRotation returns a copy of the location facing the provided direction.
func (l Location) WithRotation(pitch, yaw float64) Location {
	l.Pitch = pitch
	l.Yaw = yaw
	return l
}

// Rotated reports whether the location carries any facing at all.
func (l Location) Rotated() bool {
	return l.Pitch != 0 || l.Yaw != 0
}

// String renders the block position as x,y,z@world.
func (l Location) String() string {
	x, y, z := l.Block()
	return fmt.Sprintf("%d,%d,%d@%s", x, y, z, l.World)
}
