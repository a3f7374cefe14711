package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
)

var Stats = Define(Definition{
	Name:        "stats",
	Usage:       "stats",
	Description: "show server and session statistics (admin only)",
	Group:       GroupAdmin,
}, func(ctx *Context) bool {
	if ctx.Player != nil && !ctx.Player.IsAdmin {
		return ctx.warn("Only admins may view server statistics.")
	}
	var builder strings.Builder
	builder.WriteString(game.Style("Server overview", game.AnsiBold, game.AnsiUnderline))
	builder.WriteString(fmt.Sprintf("\r\n  Players online:   %s", game.Style(fmt.Sprintf("%d", len(ctx.World.ListPlayers())), game.AnsiGreen, game.AnsiBold)))
	builder.WriteString(fmt.Sprintf("\r\n  Sessions tracked: %d", ctx.Core.Teleports.Sessions().Len()))
	chunks := 0
	for _, d := range ctx.World.Dimensions() {
		chunks += d.LoadedChunks()
	}
	builder.WriteString(fmt.Sprintf("\r\n  Worlds:           %d (%d chunks loaded)", len(ctx.World.Dimensions()), chunks))
	for _, store := range ctx.Core.stores() {
		builder.WriteString(fmt.Sprintf("\r\n  Pending %-9s %d", store.Kind()+"s:", store.Pending()))
	}
	return ctx.reply(builder.String())
})
