package commands

import (
	"commandbook/internal/host"
	"commandbook/internal/teleport"
)

var Teleport = Define(Definition{
	Name:        "teleport",
	Aliases:     []string{"tp"},
	Usage:       "tp [-s] [targets] <destination>",
	Description: "teleport yourself or others to a player or location",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	flags, args := splitFlags(ctx.Arg, "s")
	args = joinCoordinates(args)

	var targets []host.PlayerSummary
	var destExpr string
	switch len(args) {
	case 1:
		self, err := ctx.self()
		if err != nil {
			return ctx.fail(err)
		}
		targets = []host.PlayerSummary{self}
		destExpr = args[0]
	case 2:
		var err error
		if targets, err = ctx.Core.Targets.Match(ctx.Actor, args[0]); err != nil {
			return ctx.fail(err)
		}
		destExpr = args[1]
	default:
		return ctx.usage()
	}

	dest, relative, err := ctx.Core.Locations.ResolveRelative(ctx.Actor, destExpr)
	if err != nil {
		return ctx.fail(err)
	}
	if _, err := ctx.Core.Teleports.Teleport(ctx.Actor, targets, dest, teleport.Options{
		Silent:   flags['s'],
		Relative: relative,
	}); err != nil {
		return ctx.fail(err)
	}
	return false
})
