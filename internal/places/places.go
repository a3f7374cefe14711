// Package places stores named locations such as homes and warps.
package places

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"commandbook/internal/host"
)

// ErrInvalidName is returned when a location id contains characters outside
// letters, digits, dashes and underscores.
var ErrInvalidName = errors.New("invalid location name")

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Place is a named location and who created it.
type Place struct {
	Name      string
	OwnerID   uuid.UUID
	OwnerName string
	Location  host.Location
}

// Key is the case-insensitive lookup key for a name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidName reports whether name can be used as a location id.
func ValidName(name string) bool {
	return validName.MatchString(strings.TrimSpace(name))
}

// Backend persists places. Scope is the world name for per-world stores and
// empty otherwise.
type Backend interface {
	LoadPlaces(kind string) (map[string][]Place, error)
	PutPlace(kind, scope string, p Place) error
	DeletePlace(kind, scope, name string) error
}

type bucket struct {
	active  map[string]Place
	pending map[string]Place
}

func newBucket() *bucket {
	return &bucket{active: make(map[string]Place), pending: make(map[string]Place)}
}

// Store holds one kind of named location. When perWorld is set every world
// has its own namespace, otherwise all worlds share one.
type Store struct {
	mu       sync.Mutex
	kind     string
	perWorld bool
	backend  Backend
	logger   *log.Logger
	scopes   map[string]*bucket
	loaded   func(world string) bool
}

// NewStore creates an empty store. backend may be nil for a memory-only store.
func NewStore(kind string, perWorld bool, backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		kind:     kind,
		perWorld: perWorld,
		backend:  backend,
		logger:   logger,
		scopes:   make(map[string]*bucket),
		loaded:   func(string) bool { return true },
	}
}

// Kind is the store's name, e.g. "home" or "warp".
func (s *Store) Kind() string { return s.kind }

// PerWorld reports whether names are scoped to worlds.
func (s *Store) PerWorld() bool { return s.perWorld }

func (s *Store) scope(world string) string {
	if !s.perWorld {
		return ""
	}
	return world
}

func (s *Store) bucket(scope string) *bucket {
	b, ok := s.scopes[scope]
	if !ok {
		b = newBucket()
		s.scopes[scope] = b
	}
	return b
}

// Load reads every place from the backend. Places whose world is not loaded
// go into the pending bucket until UpdateWorlds sees that world.
func (s *Store) Load(loaded func(world string) bool) error {
	if loaded == nil {
		loaded = func(string) bool { return true }
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = loaded
	s.scopes = make(map[string]*bucket)
	if s.backend == nil {
		return nil
	}
	all, err := s.backend.LoadPlaces(s.kind)
	if err != nil {
		return fmt.Errorf("load %ss: %w", s.kind, err)
	}
	for scope, places := range all {
		b := s.bucket(scope)
		for _, p := range places {
			if loaded(p.Location.World) {
				b.active[Key(p.Name)] = p
			} else {
				b.pending[Key(p.Name)] = p
			}
		}
	}
	return nil
}

// UpdateWorlds moves places between the active and pending buckets after
// worlds were loaded or unloaded.
func (s *Store) UpdateWorlds(loaded func(world string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = loaded
	for _, b := range s.scopes {
		for key, p := range b.pending {
			if loaded(p.Location.World) {
				b.active[key] = p
				delete(b.pending, key)
			}
		}
		for key, p := range b.active {
			if !loaded(p.Location.World) {
				b.pending[key] = p
				delete(b.active, key)
			}
		}
	}
}

// Get looks up a place by name. world selects the namespace for per-world
// stores and is ignored otherwise.
func (s *Store) Get(world, name string) (Place, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.scopes[s.scope(world)]
	if !ok {
		return Place{}, false
	}
	p, ok := b.active[Key(name)]
	return p, ok
}

// Create stores a place at loc, replacing any place with the same name.
func (s *Store) Create(name string, loc host.Location, ownerID uuid.UUID, ownerName string) (Place, error) {
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		return Place{}, ErrInvalidName
	}
	p := Place{Name: name, OwnerID: ownerID, OwnerName: ownerName, Location: loc}
	scope := s.scope(loc.World)

	s.mu.Lock()
	b := s.bucket(scope)
	key := Key(name)
	delete(b.pending, key)
	if s.loaded(loc.World) {
		b.active[key] = p
	} else {
		b.pending[key] = p
	}
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.PutPlace(s.kind, scope, p); err != nil {
			s.logger.Printf("failed to save %s %q: %v", s.kind, name, err)
		}
	}
	return p, nil
}

// Remove deletes a place and reports whether it existed.
func (s *Store) Remove(world, name string) bool {
	scope := s.scope(world)
	key := Key(name)

	s.mu.Lock()
	b, ok := s.scopes[scope]
	if !ok {
		s.mu.Unlock()
		return false
	}
	p, ok := b.active[key]
	if ok {
		delete(b.active, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	if s.backend != nil {
		if err := s.backend.DeletePlace(s.kind, scope, p.Name); err != nil {
			s.logger.Printf("failed to delete %s %q: %v", s.kind, name, err)
		}
	}
	return true
}

// List returns the active places in a namespace sorted by name.
func (s *Store) List(world string) []Place {
	s.mu.Lock()
	b, ok := s.scopes[s.scope(world)]
	var out []Place
	if ok {
		out = lo.Values(b.active)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return Key(out[i].Name) < Key(out[j].Name) })
	return out
}

// Owned returns the places in a namespace created by owner.
func (s *Store) Owned(world string, owner uuid.UUID) []Place {
	return lo.Filter(s.List(world), func(p Place, _ int) bool {
		return p.OwnerID == owner
	})
}

// Pending reports how many places wait for their world to load.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.scopes {
		n += len(b.pending)
	}
	return n
}
