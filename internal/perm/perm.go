// Package perm builds permission nodes and answers permission checks for
// actors.
package perm

import (
	"strings"

	"commandbook/internal/host"
)

const (
	TargetsEveryone = "commandbook.targets.everyone"
	TargetsWorld    = "commandbook.targets.world"
	TargetsNear     = "commandbook.targets.near"

	LocationsCoords   = "commandbook.locations.coords"
	LocationsRelative = "commandbook.locations.coords.relative"
	LocationsTarget   = "commandbook.locations.target"
	LocationsHome     = "commandbook.locations.home"
	LocationsWarp     = "commandbook.locations.warp"

	Spawn    = "commandbook.spawn"
	SetSpawn = "commandbook.setspawn"

	Teleport        = "commandbook.teleport"
	TeleportOther   = "commandbook.teleport.other"
	TeleportVehicle = "commandbook.teleport.vehicle"
	Call            = "commandbook.call"
	Return          = "commandbook.return"
	ReturnOther     = "commandbook.return.other"

	HomeTeleport = "commandbook.home.teleport"
	HomeSet      = "commandbook.home.set"
	HomeRemove   = "commandbook.home.remove"
	HomeList     = "commandbook.home.list"
	WarpTeleport = "commandbook.warp.teleport"
	WarpSet      = "commandbook.warp.set"
	WarpRemove   = "commandbook.warp.remove"
	WarpList     = "commandbook.warp.list"

	Who   = "commandbook.who"
	Where = "commandbook.where"
)

// Node joins a base permission with scope segments. Segments are lowercased
// and blank ones are skipped, so Node("a.b", "World") is "a.b.world".
func Node(base string, scope ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, s := range scope {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		b.WriteByte('.')
		b.WriteString(s)
	}
	return b.String()
}

// Other is the variant of base required when acting on somebody else.
func Other(base string) string {
	return Node(base, "other")
}

// Checker answers whether an actor holds a permission node, globally or
// within a single world.
type Checker interface {
	Has(actor host.Actor, node string) bool
	HasIn(actor host.Actor, world, node string) bool
}

// Require fails with a PermissionDenied error when the actor lacks node.
func Require(c Checker, actor host.Actor, node string) error {
	if c.Has(actor, node) {
		return nil
	}
	return host.ErrPermissionDenied
}

// RequireIn is Require scoped to a world.
func RequireIn(c Checker, actor host.Actor, world, node string) error {
	if c.HasIn(actor, world, node) {
		return nil
	}
	return host.ErrPermissionDenied
}

// AllowAll grants every node. Useful for tests and single-operator servers.
type AllowAll struct{}

func (AllowAll) Has(host.Actor, string) bool           { return true }
func (AllowAll) HasIn(host.Actor, string, string) bool { return true }

// Match reports whether a granted node covers the requested one. A granted
// node ending in "*" covers everything sharing its prefix.
func Match(granted, node string) bool {
	if granted == node {
		return true
	}
	if strings.HasSuffix(granted, "*") {
		return strings.HasPrefix(node, granted[:len(granted)-1])
	}
	return false
}
