package commands

import "commandbook/internal/game"

var Quit = Define(Definition{
	Name:        "quit",
	Aliases:     []string{"q"},
	Usage:       "quit",
	Description: "disconnect",
}, func(ctx *Context) bool {
	if ctx.Player == nil {
		return ctx.warn("The console cannot quit.")
	}
	ctx.Player.Output <- game.Ansi("\r\nGoodbye.\r\n")
	return true
})
