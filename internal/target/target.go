// Package target turns player query strings into the set of online players
// they select.
//
// The query language:
//
//	*               every online player
//	@name           exact name, case-insensitive
//	*fragment       every player whose name contains fragment
//	name            every player whose name starts with name
//	#world          players in the actor's world
//	#near           players within 30 blocks of the actor
//	#player:<name>  players in the same world as <name>
//	#console, !     the console, where a single recipient is expected
package target

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"commandbook/internal/host"
	"commandbook/internal/perm"
)

// NearDistanceSquared bounds #near. It is a 3D distance, vertical offsets
// count.
const NearDistanceSquared = 30 * 30

type group int

const (
	groupWorld group = iota + 1
	groupNear
	groupPlayerWorld
	groupConsole
)

var groupTokens = map[string]group{
	"#world":   groupWorld,
	"#near":    groupNear,
	"#player":  groupPlayerWorld,
	"#console": groupConsole,
}

// IsConsole reports whether expr names the console.
func IsConsole(expr string) bool {
	switch strings.ToLower(strings.TrimSpace(expr)) {
	case "#console", "*console*", "!":
		return true
	}
	return false
}

var colorCodes = regexp.MustCompile(`\x1b\[[0-9;]*m|\x{00A7}.`)

// StripColor removes ANSI and section-sign colour codes from a display name.
func StripColor(s string) string {
	return colorCodes.ReplaceAllString(s, "")
}

// Resolver matches target expressions against the online players.
type Resolver struct {
	dir          host.Directory
	perms        perm.Checker
	console      host.Actor
	displayNames bool
}

// New creates a resolver. When displayNames is set, display names are
// matched alongside account names.
func New(dir host.Directory, perms perm.Checker, console host.Actor, displayNames bool) *Resolver {
	return &Resolver{dir: dir, perms: perms, console: console, displayNames: displayNames}
}

// Console returns the console actor used for #console.
func (r *Resolver) Console() host.Actor { return r.console }

func fold(s string) string {
	return cases.Fold().String(s)
}

func (r *Resolver) names(p host.PlayerSummary) []string {
	names := []string{fold(p.Name)}
	if r.displayNames && p.DisplayName != "" {
		names = append(names, fold(StripColor(p.DisplayName)))
	}
	return names
}

// Match resolves expr to one or more players. It never returns an empty
// slice without an error.
func (r *Resolver) Match(actor host.Actor, expr string) ([]host.PlayerSummary, error) {
	expr = strings.TrimSpace(expr)
	players := r.dir.OnlinePlayers()
	if len(players) == 0 || expr == "" {
		return nil, host.ErrNoMatches
	}

	if expr == "*" {
		if err := perm.Require(r.perms, actor, perm.TargetsEveryone); err != nil {
			return nil, err
		}
		return players, nil
	}
	if strings.HasPrefix(expr, "#") {
		return r.matchGroup(actor, players, expr)
	}
	return checkMatch(r.MatchNames(actor, players, expr))
}

// MatchNames applies the name based rules (@exact, *partial, prefix) to a
// list of players. The actor, when among prefix matches, comes last.
func (r *Resolver) MatchNames(actor host.Actor, players []host.PlayerSummary, filter string) []host.PlayerSummary {
	filter = fold(filter)
	switch {
	case len(filter) >= 2 && filter[0] == '@':
		name := filter[1:]
		for _, p := range players {
			if lo.Contains(r.names(p), name) {
				return []host.PlayerSummary{p}
			}
		}
		return nil
	case len(filter) >= 2 && filter[0] == '*':
		fragment := filter[1:]
		return lo.Filter(players, func(p host.PlayerSummary, _ int) bool {
			return lo.SomeBy(r.names(p), func(n string) bool { return strings.Contains(n, fragment) })
		})
	}

	var matched []host.PlayerSummary
	var self *host.PlayerSummary
	for _, p := range players {
		if !lo.SomeBy(r.names(p), func(n string) bool { return strings.HasPrefix(n, filter) }) {
			continue
		}
		if host.IsPlayer(actor, p.UUID) {
			self = &p
			continue
		}
		matched = append(matched, p)
	}
	if self != nil {
		matched = append(matched, *self)
	}
	return matched
}

func (r *Resolver) matchGroup(actor host.Actor, players []host.PlayerSummary, expr string) ([]host.PlayerSummary, error) {
	token, arg, _ := strings.Cut(expr, ":")
	g, ok := groupTokens[strings.ToLower(token)]
	if !ok || (g == groupPlayerWorld) != (arg != "") {
		return nil, invalidGroup(expr)
	}

	switch g {
	case groupWorld:
		self, err := host.CheckPlayer(r.dir, actor)
		if err != nil {
			return nil, err
		}
		world := self.Location.World
		if err := perm.Require(r.perms, actor, perm.Node(perm.TargetsWorld, world)); err != nil {
			return nil, err
		}
		return checkMatch(inWorld(players, world))

	case groupNear:
		if err := perm.Require(r.perms, actor, perm.TargetsNear); err != nil {
			return nil, err
		}
		self, err := host.CheckPlayer(r.dir, actor)
		if err != nil {
			return nil, err
		}
		return checkMatch(lo.Filter(players, func(p host.PlayerSummary, _ int) bool {
			return p.Location.SameWorld(self.Location) &&
				p.Location.DistanceSquared(self.Location) < NearDistanceSquared
		}))

	case groupPlayerWorld:
		other, err := r.MatchSingle(actor, arg)
		if err != nil {
			return nil, err
		}
		world := other.Location.World
		if err := perm.Require(r.perms, actor, perm.Node(perm.TargetsWorld, world)); err != nil {
			return nil, err
		}
		return checkMatch(inWorld(players, world))

	case groupConsole:
		// The console is not a player and cannot be part of a player list.
		return nil, invalidGroup(expr)
	}
	return nil, invalidGroup(expr)
}

func inWorld(players []host.PlayerSummary, world string) []host.PlayerSummary {
	return lo.Filter(players, func(p host.PlayerSummary, _ int) bool {
		return p.Location.World == world
	})
}

func invalidGroup(expr string) error {
	return host.Errorf(host.KindInvalidGroupToken, "Invalid group '"+expr+"'.")
}

func checkMatch(players []host.PlayerSummary) ([]host.PlayerSummary, error) {
	if len(players) == 0 {
		return nil, host.ErrNoMatches
	}
	return players, nil
}

// MatchSingle resolves expr to exactly one player. More than one match is an
// error rather than a guess.
func (r *Resolver) MatchSingle(actor host.Actor, expr string) (host.PlayerSummary, error) {
	players, err := r.Match(actor, expr)
	if err != nil {
		return host.PlayerSummary{}, err
	}
	if len(players) > 1 {
		return host.PlayerSummary{}, host.ErrAmbiguousTarget
	}
	return players[0], nil
}

// MatchPlayerOrConsole resolves a single recipient, which may be the console.
// console is true when the console was selected.
func (r *Resolver) MatchPlayerOrConsole(actor host.Actor, expr string) (p host.PlayerSummary, console bool, err error) {
	if IsConsole(expr) {
		return host.PlayerSummary{}, true, nil
	}
	p, err = r.MatchSingle(actor, expr)
	return p, false, err
}

// ResolveFor selects the subjects of a command guarded by node. An empty
// expression selects the actor, which must be a player. Acting on the actor
// needs node, acting on anybody else needs the ".other" variant in the
// target's world. One failed check rejects the whole selection.
func (r *Resolver) ResolveFor(actor host.Actor, expr, node string) ([]host.PlayerSummary, error) {
	var targets []host.PlayerSummary
	if strings.TrimSpace(expr) == "" {
		self, err := host.CheckPlayer(r.dir, actor)
		if err != nil {
			return nil, err
		}
		targets = []host.PlayerSummary{self}
	} else {
		var err error
		if targets, err = r.Match(actor, expr); err != nil {
			return nil, err
		}
	}
	if err := r.CheckTargets(actor, targets, node); err != nil {
		return nil, err
	}
	return targets, nil
}

// CheckTargets applies the self/other permission rule of ResolveFor to an
// already resolved list.
func (r *Resolver) CheckTargets(actor host.Actor, targets []host.PlayerSummary, node string) error {
	checked := make(map[string]bool)
	for _, t := range targets {
		if host.IsPlayer(actor, t.UUID) {
			if err := perm.Require(r.perms, actor, node); err != nil {
				return err
			}
			continue
		}
		world := t.Location.World
		if checked[world] {
			continue
		}
		if err := perm.RequireIn(r.perms, actor, world, perm.Other(node)); err != nil {
			return err
		}
		checked[world] = true
	}
	return nil
}
