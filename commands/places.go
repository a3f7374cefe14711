package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/host"
	"commandbook/internal/location"
	"commandbook/internal/perm"
	"commandbook/internal/places"
	"commandbook/internal/teleport"
)

// placeNodes are the permission nodes guarding one kind of named location.
type placeNodes struct {
	teleport, set, remove, list string
}

var (
	homeNodes = placeNodes{perm.HomeTeleport, perm.HomeSet, perm.HomeRemove, perm.HomeList}
	warpNodes = placeNodes{perm.WarpTeleport, perm.WarpSet, perm.WarpRemove, perm.WarpList}
)

var errDisabled = host.Errorf(host.KindInvalidGroupToken, "This type of location is not enabled!")

// goToPlace teleports the actor to the place named by args, which are the
// optional name and world of a #home or #warp expression.
func goToPlace(ctx *Context, kind string, nodes placeNodes, args []string) bool {
	if err := ctx.require(nodes.teleport); err != nil {
		return ctx.fail(err)
	}
	self, err := ctx.self()
	if err != nil {
		return ctx.fail(err)
	}
	expr := "#" + kind
	for _, a := range args {
		expr += ":" + a
	}
	dest, err := ctx.Core.Locations.Resolve(ctx.Actor, expr)
	if err != nil {
		return ctx.fail(err)
	}
	if _, err := ctx.Core.Teleports.Execute(ctx.Actor, []host.PlayerSummary{self}, dest, teleport.Options{}); err != nil {
		return ctx.fail(err)
	}
	return false
}

// setPlace stores the actor's position under name. Replacing a place
// somebody else created needs the ".other" node.
func setPlace(ctx *Context, store *places.Store, nodes placeNodes, name string) bool {
	if store == nil {
		return ctx.fail(errDisabled)
	}
	if err := ctx.require(nodes.set); err != nil {
		return ctx.fail(err)
	}
	self, err := ctx.self()
	if err != nil {
		return ctx.fail(err)
	}
	if name == "" {
		name = self.Name
	}
	if existing, ok := store.Get(self.Location.World, name); ok && !location.OwnedBy(existing, ctx.Actor) {
		if err := ctx.require(perm.Other(nodes.set)); err != nil {
			return ctx.fail(err)
		}
	}
	p, err := store.Create(name, self.Location, self.UUID, self.Name)
	if err != nil {
		return ctx.warn("Names may only use letters, numbers, dashes and underscores.")
	}
	return ctx.reply(fmt.Sprintf("%s '%s' set at %s.", titleKind(store.Kind()), p.Name, p.Location))
}

func removePlace(ctx *Context, store *places.Store, nodes placeNodes, args []string) bool {
	if store == nil {
		return ctx.fail(errDisabled)
	}
	if err := ctx.require(nodes.remove); err != nil {
		return ctx.fail(err)
	}
	name, world, err := placeScope(ctx, args)
	if err != nil {
		return ctx.fail(err)
	}
	p, ok := store.Get(world, name)
	if !ok {
		return ctx.warn("A location by that name could not be found.")
	}
	if !location.OwnedBy(p, ctx.Actor) {
		if err := ctx.require(perm.Other(nodes.remove)); err != nil {
			return ctx.fail(err)
		}
	}
	store.Remove(world, p.Name)
	return ctx.reply(fmt.Sprintf("%s '%s' removed.", titleKind(store.Kind()), p.Name))
}

func listPlaces(ctx *Context, store *places.Store, nodes placeNodes, worldArg string) bool {
	if store == nil {
		return ctx.fail(errDisabled)
	}
	if err := ctx.require(nodes.list); err != nil {
		return ctx.fail(err)
	}
	var world string
	if worldArg != "" {
		w, err := ctx.Core.Locations.MatchWorld(ctx.Actor, worldArg)
		if err != nil {
			return ctx.fail(err)
		}
		world = w.Name()
	} else if self, err := ctx.self(); err == nil {
		world = self.Location.World
	} else if worlds := ctx.World.Worlds(); len(worlds) > 0 {
		world = worlds[0].Name()
	}

	list := store.List(world)
	if len(list) == 0 {
		return ctx.reply(fmt.Sprintf("No %ss found.", store.Kind()))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%ss (%d):", titleKind(store.Kind()), len(list)))
	for _, p := range list {
		b.WriteString(fmt.Sprintf("\r\n  %-16s %s by %s", p.Name, p.Location, p.OwnerName))
	}
	return ctx.reply(b.String())
}

// placeScope splits "<name> [world]" arguments. The name defaults to the
// actor's own and the world to the actor's.
func placeScope(ctx *Context, args []string) (string, string, error) {
	var name, world string
	if len(args) > 0 {
		name = args[0]
	}
	if len(args) > 1 {
		w, err := ctx.Core.Locations.MatchWorld(ctx.Actor, args[1])
		if err != nil {
			return "", "", err
		}
		world = w.Name()
	}
	if name == "" || world == "" {
		self, err := ctx.self()
		if err != nil {
			return "", "", err
		}
		if name == "" {
			name = self.Name
		}
		if world == "" {
			world = self.Location.World
		}
	}
	return name, world, nil
}

func titleKind(kind string) string {
	if kind == "" {
		return kind
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
