package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
)

var Worlds = Define(Definition{
	Name:        "worlds",
	Usage:       "worlds",
	Description: "list the loaded worlds",
}, func(ctx *Context) bool {
	var builder strings.Builder
	builder.WriteString(game.Style("Worlds:", game.AnsiBold, game.AnsiUnderline))
	for _, d := range ctx.World.Dimensions() {
		builder.WriteString(fmt.Sprintf("\r\n  %-16s %-7s spawn %s, %d chunks loaded",
			d.Name(), d.Environment(), d.Spawn(), d.LoadedChunks()))
	}
	return ctx.reply(builder.String())
})
