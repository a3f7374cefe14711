package commands

import (
	"fmt"

	"commandbook/internal/host"
	"commandbook/internal/perm"
	"commandbook/internal/teleport"
)

var Spawn = Define(Definition{
	Name:        "spawn",
	Usage:       "spawn [-s] [world|targets]",
	Description: "go to the spawn of a world, or send players to theirs",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	flags, args := splitFlags(ctx.Arg, "s")
	if len(args) > 1 {
		return ctx.usage()
	}
	expr := ""
	if len(args) == 1 {
		expr = args[0]
	}

	if expr != "" {
		if w, err := ctx.Core.Locations.MatchWorld(ctx.Actor, expr); err == nil {
			self, err := ctx.self()
			if err != nil {
				return ctx.fail(err)
			}
			if err := perm.RequireIn(ctx.Core.Perms, ctx.Actor, w.Name(), perm.Spawn); err != nil {
				return ctx.fail(err)
			}
			if _, err := ctx.Core.Teleports.Execute(ctx.Actor, []host.PlayerSummary{self}, w.Spawn(), teleport.Options{
				Silent: flags['s'],
				Notice: &teleport.ToSpawn,
			}); err != nil {
				return ctx.fail(err)
			}
			return false
		}
	}

	targets, err := ctx.Core.Targets.ResolveFor(ctx.Actor, expr, perm.Spawn)
	if err != nil {
		return ctx.fail(err)
	}
	if _, err := ctx.Core.Teleports.Spawn(ctx.Actor, targets, flags['s']); err != nil {
		return ctx.fail(err)
	}
	return false
})

var SetSpawn = Define(Definition{
	Name:        "setspawn",
	Usage:       "setspawn",
	Description: "move the spawn of your world to where you stand",
	Group:       GroupAdmin,
}, func(ctx *Context) bool {
	self, err := ctx.self()
	if err != nil {
		return ctx.fail(err)
	}
	world := self.Location.World
	if err := perm.RequireIn(ctx.Core.Perms, ctx.Actor, world, perm.SetSpawn); err != nil {
		return ctx.fail(err)
	}
	d, ok := ctx.World.Dimension(world)
	if !ok {
		return ctx.fail(host.ErrNoSuchWorld)
	}
	x, y, z := self.Location.Block()
	spawn := host.At(world, float64(x)+0.5, float64(y), float64(z)+0.5)
	if err := d.SetSpawn(spawn); err != nil {
		return ctx.fail(err)
	}
	return ctx.reply(fmt.Sprintf("Spawn location of %s set to %s.", world, spawn))
})
