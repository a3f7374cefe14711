package commands

import (
	"commandbook/internal/game"
	"commandbook/internal/host"
)

var Nick = Define(Definition{
	Name:        "nick",
	Usage:       "nick [display name]",
	Description: "set or clear the name others see",
}, func(ctx *Context) bool {
	if ctx.Player == nil {
		return ctx.fail(host.ErrRequiresPlayer)
	}
	name := game.Trim(ctx.Arg)
	if len([]rune(name)) > 32 {
		return ctx.warn("Display names are limited to 32 characters.")
	}
	ctx.World.SetDisplayName(ctx.Player, name)
	ctx.World.PersistPlayer(ctx.Player)
	if name == "" {
		return ctx.reply("Your display name was cleared.")
	}
	return ctx.reply("You are now known as " + game.HighlightName(name) + ".")
})
