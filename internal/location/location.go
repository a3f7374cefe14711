// Package location resolves location expressions: coordinates, special
// #tokens, named homes and warps, or the position of matched players.
package location

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"commandbook/internal/host"
	"commandbook/internal/perm"
	"commandbook/internal/places"
	"commandbook/internal/target"
)

// TargetDistance is how far #target looks for a block.
const TargetDistance = 100

var coordinates = regexp.MustCompile(`^[~\-0-9.]+,[~\-0-9.]+,[~\-0-9.]+(?::.+)?$`)

// Env is the part of the host a Resolver reads.
type Env interface {
	host.Directory
	host.Worlds
	host.Raycaster
}

type token int

const (
	tokenSpawn token = iota + 1
	tokenTarget
	tokenHome
	tokenWarp
	tokenMe
)

var tokens = map[string]token{
	"#spawn":  tokenSpawn,
	"#target": tokenTarget,
	"#home":   tokenHome,
	"#warp":   tokenWarp,
	"#me":     tokenMe,
}

// Resolver turns location expressions into world positions.
type Resolver struct {
	env     Env
	perms   perm.Checker
	targets *target.Resolver
	homes   *places.Store
	warps   *places.Store
}

// New creates a resolver. homes and warps may be nil when that kind of
// named location is disabled.
func New(env Env, perms perm.Checker, targets *target.Resolver, homes, warps *places.Store) *Resolver {
	return &Resolver{env: env, perms: perms, targets: targets, homes: homes, warps: warps}
}

// Resolve returns the single location expr refers to. A player expression
// matching more than one player is ambiguous.
func (r *Resolver) Resolve(actor host.Actor, expr string) (host.Location, error) {
	locs, err := r.resolve(actor, expr, true)
	if err != nil {
		return host.Location{}, err
	}
	return locs[0], nil
}

// ResolveMany is Resolve except a player expression yields the position of
// every matched player.
func (r *Resolver) ResolveMany(actor host.Actor, expr string) ([]host.Location, error) {
	return r.resolve(actor, expr, false)
}

// ResolveRelative is Resolve except that ~ coordinate axes are left as
// offsets and reported in the returned mask, so a mover can apply them to
// each moved player's own position.
func (r *Resolver) ResolveRelative(actor host.Actor, expr string) (host.Location, [3]bool, error) {
	expr = strings.TrimSpace(expr)
	if !coordinates.MatchString(expr) {
		loc, err := r.Resolve(actor, expr)
		return loc, [3]bool{}, err
	}
	loc, rel, precise, err := r.coordinates(actor, expr)
	if err != nil {
		return host.Location{}, rel, err
	}
	if !precise {
		centered := Center(loc)
		for _, i := range []int{0, 2} {
			if !rel[i] {
				loc.Pos[i] = centered.Pos[i]
			}
		}
	}
	return loc, rel, nil
}

func (r *Resolver) resolve(actor host.Actor, expr string, single bool) ([]host.Location, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, host.ErrNoMatches
	}

	var (
		locs    []host.Location
		precise bool
		err     error
	)
	switch {
	case coordinates.MatchString(expr):
		var (
			loc host.Location
			rel [3]bool
		)
		loc, rel, precise, err = r.coordinates(actor, expr)
		if err == nil {
			loc, err = r.rebase(actor, loc, rel)
		}
		locs = []host.Location{loc}
	case strings.HasPrefix(expr, "#"):
		var loc host.Location
		loc, err = r.group(actor, expr)
		locs = []host.Location{loc}
	default:
		locs, err = r.players(actor, expr, single)
	}
	if err != nil {
		return nil, err
	}
	if !precise {
		locs = lo.Map(locs, func(l host.Location, _ int) host.Location { return Center(l) })
	}
	return locs, nil
}

// Center moves x and z to the middle of the block when they sit exactly on a
// block edge.
func Center(l host.Location) host.Location {
	if l.Pos[0] == math.Floor(l.Pos[0]) {
		l.Pos[0] += 0.5
	}
	if l.Pos[2] == math.Floor(l.Pos[2]) {
		l.Pos[2] += 0.5
	}
	return l
}

func (r *Resolver) players(actor host.Actor, expr string, single bool) ([]host.Location, error) {
	players, err := r.targets.Match(actor, expr)
	if err != nil {
		return nil, err
	}
	if single && len(players) > 1 {
		return nil, host.ErrAmbiguousTarget
	}
	return lo.Map(players, func(p host.PlayerSummary, _ int) host.Location { return p.Location }), nil
}

type component struct {
	value    float64
	relative bool
}

func parseComponent(s string) (component, error) {
	c := component{}
	if strings.HasPrefix(s, "~") {
		c.relative = true
		s = s[1:]
		if s == "" {
			return c, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return c, host.ErrInvalidCoordinates
	}
	c.value = v
	return c, nil
}

// coordinates parses x,y,z[:world]. Relative axes hold the bare offset.
func (r *Resolver) coordinates(actor host.Actor, expr string) (host.Location, [3]bool, bool, error) {
	var rel [3]bool
	if err := perm.Require(r.perms, actor, perm.LocationsCoords); err != nil {
		return host.Location{}, rel, false, err
	}
	coords, worldName, hasWorld := strings.Cut(expr, ":")
	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return host.Location{}, rel, false, host.ErrInvalidCoordinates
	}

	loc := host.Location{}
	relative, precise := false, false
	for i, part := range parts {
		c, err := parseComponent(part)
		if err != nil {
			return host.Location{}, rel, false, err
		}
		loc.Pos[i] = c.value
		rel[i] = c.relative
		relative = relative || c.relative
		precise = precise || c.value != math.Trunc(c.value)
	}

	if relative || !hasWorld {
		p, err := host.CheckPlayer(r.env, actor)
		if err != nil {
			return host.Location{}, rel, false, err
		}
		loc.World = p.Location.World
	}
	if relative {
		if err := perm.Require(r.perms, actor, perm.LocationsRelative); err != nil {
			return host.Location{}, rel, false, err
		}
	}
	if hasWorld {
		w, err := r.MatchWorld(actor, worldName)
		if err != nil {
			return host.Location{}, rel, false, err
		}
		loc.World = w.Name()
	}
	return loc, rel, precise, nil
}

// rebase applies relative offsets to the actor's own position.
func (r *Resolver) rebase(actor host.Actor, loc host.Location, rel [3]bool) (host.Location, error) {
	if rel == ([3]bool{}) {
		return loc, nil
	}
	self, err := host.CheckPlayer(r.env, actor)
	if err != nil {
		return host.Location{}, err
	}
	for i, relative := range rel {
		if relative {
			loc.Pos[i] += self.Location.Pos[i]
		}
	}
	return loc, nil
}

func (r *Resolver) group(actor host.Actor, expr string) (host.Location, error) {
	args := strings.Split(expr, ":")
	tok, ok := tokens[strings.ToLower(args[0])]
	if !ok {
		return host.Location{}, host.Errorf(host.KindInvalidGroupToken, "Invalid group '"+expr+"'.")
	}

	switch tok {
	case tokenSpawn:
		if err := perm.Require(r.perms, actor, perm.Spawn); err != nil {
			return host.Location{}, err
		}
		if len(args) > 1 {
			w, err := r.MatchWorld(actor, args[1])
			if err != nil {
				return host.Location{}, err
			}
			return w.Spawn(), nil
		}
		self, err := host.CheckPlayer(r.env, actor)
		if err != nil {
			return host.Location{}, err
		}
		w, ok := r.env.World(self.Location.World)
		if !ok {
			return host.Location{}, host.ErrNoSuchWorld
		}
		return w.Spawn(), nil

	case tokenTarget:
		return r.target(actor)

	case tokenHome:
		return r.named(actor, r.homes, "home", args[1:])

	case tokenWarp:
		return r.named(actor, r.warps, "warp", args[1:])

	case tokenMe:
		self, err := host.CheckPlayer(r.env, actor)
		if err != nil {
			return host.Location{}, err
		}
		return self.Location, nil
	}
	return host.Location{}, host.Errorf(host.KindInvalidGroupToken, "Invalid group '"+expr+"'.")
}

func (r *Resolver) target(actor host.Actor) (host.Location, error) {
	if err := perm.Require(r.perms, actor, perm.LocationsTarget); err != nil {
		return host.Location{}, err
	}
	self, err := host.CheckPlayer(r.env, actor)
	if err != nil {
		return host.Location{}, err
	}
	x, y, z, ok := r.env.TargetBlock(self.UUID, TargetDistance)
	if !ok {
		return host.Location{}, host.ErrNoTargetBlock
	}
	w, ok := r.env.World(self.Location.World)
	if !ok {
		return host.Location{}, host.ErrNoSuchWorld
	}
	search := self.Location
	search.Pos = mgl64.Vec3{float64(x), float64(y), float64(z)}
	free, ok := FindFreePosition(w, search)
	if !ok {
		return host.Location{}, host.ErrNoFreePosition
	}
	return free, nil
}

func (r *Resolver) named(actor host.Actor, store *places.Store, kind string, args []string) (host.Location, error) {
	node := perm.LocationsHome
	if kind == "warp" {
		node = perm.LocationsWarp
	}
	if err := perm.Require(r.perms, actor, node); err != nil {
		return host.Location{}, err
	}
	if store == nil {
		return host.Location{}, host.Errorf(host.KindInvalidGroupToken, "This type of location is not enabled!")
	}

	if len(args) == 0 {
		if kind == "warp" {
			return host.Location{}, host.Errorf(host.KindInvalidGroupToken, "Please specify a warp name.")
		}
		self, err := host.CheckPlayer(r.env, actor)
		if err != nil {
			return host.Location{}, err
		}
		p, ok := store.Get(self.Location.World, self.Name)
		if !ok {
			return host.Location{}, host.Errorf(host.KindNoMatches, "You have not set your home yet.")
		}
		return p.Location, nil
	}

	var world string
	if len(args) >= 2 {
		w, err := r.MatchWorld(actor, args[1])
		if err != nil {
			return host.Location{}, err
		}
		world = w.Name()
	} else {
		self, err := host.CheckPlayer(r.env, actor)
		if err != nil {
			return host.Location{}, err
		}
		world = self.Location.World
	}

	p, ok := store.Get(world, args[0])
	if !ok {
		return host.Location{}, host.Errorf(host.KindNoMatches, "A location by that name could not be found.")
	}
	if !OwnedBy(p, actor) {
		if err := perm.Require(r.perms, actor, perm.Other(node)); err != nil {
			return host.Location{}, err
		}
	}
	return p.Location, nil
}

// OwnedBy reports whether actor created the place. The console owns nothing
// but is never asked for permissions either.
func OwnedBy(p places.Place, actor host.Actor) bool {
	id, ok := actor.PlayerID()
	if !ok {
		return false
	}
	if p.OwnerID != uuid.Nil {
		return p.OwnerID == id
	}
	return strings.EqualFold(p.OwnerName, actor.Name())
}

// MatchWorld resolves a world name or one of #main, #normal, #nether, #end
// (also #theend and #skylands) and #player:<name>.
func (r *Resolver) MatchWorld(actor host.Actor, filter string) (host.World, error) {
	filter = strings.TrimSpace(filter)
	worlds := r.env.Worlds()
	if len(worlds) == 0 {
		return nil, host.ErrNoSuchWorld
	}
	if !strings.HasPrefix(filter, "#") {
		if w, ok := r.env.World(filter); ok {
			return w, nil
		}
		return nil, host.ErrNoSuchWorld
	}

	name, arg, hasArg := strings.Cut(filter, ":")
	switch strings.ToLower(name) {
	case "#main":
		return worlds[0], nil
	case "#normal":
		return firstOf(worlds, host.EnvNormal, "No normal world found.")
	case "#nether":
		return firstOf(worlds, host.EnvNether, "No nether world found.")
	case "#end", "#theend", "#skylands":
		return firstOf(worlds, host.EnvEnd, "No end world found.")
	case "#player":
		if !hasArg || arg == "" {
			return nil, host.Errorf(host.KindInvalidGroupToken, "Argument expected for #player.")
		}
		players, err := r.targets.Match(actor, arg)
		if err != nil {
			return nil, err
		}
		w, ok := r.env.World(players[0].Location.World)
		if !ok {
			return nil, host.ErrNoSuchWorld
		}
		return w, nil
	}
	return nil, host.Errorf(host.KindInvalidGroupToken, "Invalid identifier '"+filter+"'.")
}

func firstOf(worlds []host.World, env host.Environment, message string) (host.World, error) {
	w, ok := lo.Find(worlds, func(w host.World) bool { return w.Environment() == env })
	if !ok {
		return nil, host.Errorf(host.KindNoSuchWorld, message)
	}
	return w, nil
}

// FindFreePosition scans upward from start for two stacked passable blocks
// and returns the lower one, centred on the block. When that is the starting
// height the original location is returned unchanged.
func FindFreePosition(w host.World, start host.Location) (host.Location, bool) {
	x, y, z := start.Block()
	if y < 0 {
		y = 0
	}
	origY := y
	free := 0
	for ; y <= w.MaxHeight(); y++ {
		if w.Passable(x, y, z) {
			free++
		} else {
			free = 0
		}
		if free == 2 {
			loc := start
			if y-1 != origY {
				loc.Pos = mgl64.Vec3{float64(x) + 0.5, float64(y - 1), float64(z) + 0.5}
			}
			return loc, true
		}
	}
	return host.Location{}, false
}
