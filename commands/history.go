package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
	"commandbook/internal/perm"
)

var History = Define(Definition{
	Name:        "history",
	Usage:       "history [player]",
	Description: "list the places return would take you, newest first",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	targets, err := ctx.Core.Targets.ResolveFor(ctx.Actor, ctx.Arg, perm.Return)
	if err != nil {
		return ctx.fail(err)
	}
	if len(targets) > 1 {
		return ctx.warn("Pick a single player.")
	}
	t := targets[0]
	history := ctx.Core.Teleports.Sessions().Session(t.UUID).History()
	if len(history) == 0 {
		return ctx.reply(fmt.Sprintf("%s has no past locations.", game.HighlightName(t.Name)))
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Past locations of %s:", game.HighlightName(t.Name)))
	for i, loc := range history {
		builder.WriteString(fmt.Sprintf("\r\n  %2d. %s", i+1, loc))
	}
	return ctx.reply(builder.String())
})
