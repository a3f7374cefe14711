package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
	"commandbook/internal/host"
)

var Ride = Define(Definition{
	Name:        "ride",
	Usage:       "ride <minecart|boat|horse|pig>",
	Description: "summon a vehicle and climb on",
}, func(ctx *Context) bool {
	if ctx.Player == nil {
		return ctx.fail(host.ErrRequiresPlayer)
	}
	if ctx.Arg == "" {
		return ctx.warn("Usage: ride <" + strings.Join(game.VehicleKinds, "|") + ">")
	}
	v, err := ctx.World.Ride(ctx.Player, ctx.Arg)
	if err != nil {
		return ctx.fail(err)
	}
	return ctx.reply(fmt.Sprintf("You climb onto a %s.", v.Kind))
})

var Dismount = Define(Definition{
	Name:        "dismount",
	Usage:       "dismount",
	Description: "get off your vehicle",
}, func(ctx *Context) bool {
	if ctx.Player == nil {
		return ctx.fail(host.ErrRequiresPlayer)
	}
	v, ok := ctx.World.Dismount(ctx.Player.ID)
	if !ok {
		return ctx.warn("You are not riding anything.")
	}
	return ctx.reply(fmt.Sprintf("You climb off the %s.", v.Kind))
})
