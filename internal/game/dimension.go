package game

import (
	"fmt"
	"math"
	"sync"

	"commandbook/internal/host"
)

// chunkShift converts block coordinates to chunk coordinates.
const chunkShift = 4

// Dimension is a flat voxel world: everything below ground is solid, the rest
// is air, and individual blocks may be overridden.
type Dimension struct {
	name      string
	env       host.Environment
	ground    int
	maxHeight int

	mu     sync.RWMutex
	spawn  host.Location
	blocks map[[3]int]bool
	chunks map[[2]int]bool
}

// DimensionConfig describes a dimension to create.
type DimensionConfig struct {
	Name        string
	Environment host.Environment
	Ground      int
	MaxHeight   int
	// Spawn is x,y,z; nil puts spawn on the ground at the origin.
	Spawn []float64
}

// NewDimension builds a dimension from its configuration.
func NewDimension(cfg DimensionConfig) (*Dimension, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("dimension needs a name")
	}
	if cfg.MaxHeight <= 0 {
		return nil, fmt.Errorf("dimension %s: max height must be positive", cfg.Name)
	}
	if cfg.Ground < 0 || cfg.Ground >= cfg.MaxHeight {
		return nil, fmt.Errorf("dimension %s: ground %d outside 0..%d", cfg.Name, cfg.Ground, cfg.MaxHeight-1)
	}
	spawn := host.At(cfg.Name, 0.5, float64(cfg.Ground), 0.5)
	if len(cfg.Spawn) == 3 {
		spawn = host.At(cfg.Name, cfg.Spawn[0], cfg.Spawn[1], cfg.Spawn[2])
	}
	return &Dimension{
		name:      cfg.Name,
		env:       cfg.Environment,
		ground:    cfg.Ground,
		maxHeight: cfg.MaxHeight,
		spawn:     spawn,
		blocks:    make(map[[3]int]bool),
		chunks:    make(map[[2]int]bool),
	}, nil
}

func (d *Dimension) Name() string                 { return d.name }
func (d *Dimension) Environment() host.Environment { return d.env }
func (d *Dimension) MaxHeight() int                { return d.maxHeight }
func (d *Dimension) Ground() int                   { return d.ground }

func (d *Dimension) Spawn() host.Location {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spawn
}

// SetSpawn moves the spawn point. The location must be in this dimension.
func (d *Dimension) SetSpawn(loc host.Location) error {
	if loc.World != d.name {
		return fmt.Errorf("spawn %s is not in %s", loc, d.name)
	}
	d.mu.Lock()
	d.spawn = loc
	d.mu.Unlock()
	return nil
}

// Passable reports whether a player can stand inside the block.
func (d *Dimension) Passable(x, y, z int) bool {
	if y < 0 {
		return false
	}
	if y >= d.maxHeight {
		return true
	}
	d.mu.RLock()
	passable, ok := d.blocks[[3]int{x, y, z}]
	d.mu.RUnlock()
	if ok {
		return passable
	}
	return y >= d.ground
}

// SetBlock overrides a single block.
func (d *Dimension) SetBlock(x, y, z int, solid bool) {
	d.mu.Lock()
	d.blocks[[3]int{x, y, z}] = !solid
	d.mu.Unlock()
}

func chunkOf(pos host.Location) [2]int {
	x, _, z := pos.Block()
	return [2]int{x >> chunkShift, z >> chunkShift}
}

// LoadChunk marks the chunk containing pos as loaded.
func (d *Dimension) LoadChunk(pos host.Location) {
	d.mu.Lock()
	d.chunks[chunkOf(pos)] = true
	d.mu.Unlock()
}

// ChunkLoaded reports whether the chunk containing pos has been loaded.
func (d *Dimension) ChunkLoaded(pos host.Location) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.chunks[chunkOf(pos)]
}

// LoadedChunks counts loaded chunks.
func (d *Dimension) LoadedChunks() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chunks)
}

// Surface returns the lowest standing position at or above the ground in the
// column at x,z.
func (d *Dimension) Surface(x, z float64) host.Location {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	for y := 0; y < d.maxHeight; y++ {
		if d.Passable(bx, y, bz) && d.Passable(bx, y+1, bz) {
			return host.At(d.name, x, float64(y), z)
		}
	}
	return host.At(d.name, x, float64(d.maxHeight), z)
}
