package commands

import (
	"strings"

	"commandbook/internal/game"
	"commandbook/internal/perm"
)

var Who = Define(Definition{
	Name:        "who",
	Usage:       "who",
	Description: "list connected players",
}, func(ctx *Context) bool {
	if err := ctx.require(perm.Who); err != nil {
		return ctx.fail(err)
	}
	names := ctx.World.ListPlayers()
	if ctx.Player != nil {
		names = filterOut(names, ctx.Player.Name)
	}
	if len(names) == 0 {
		if ctx.Player == nil {
			return ctx.reply("Nobody is online.")
		}
		return ctx.reply("You are the only player online.")
	}
	label := "Other players online: "
	if ctx.Player == nil {
		label = "Players online: "
	}
	return ctx.reply(label + strings.Join(game.HighlightNames(names), ", "))
})

func filterOut(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		if !strings.EqualFold(n, name) {
			out = append(out, n)
		}
	}
	return out
}
