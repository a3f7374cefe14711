package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
	"commandbook/internal/perm"
)

var Where = Define(Definition{
	Name:        "where",
	Aliases:     []string{"pos"},
	Usage:       "where [targets]",
	Description: "show where players are and which way they face",
}, func(ctx *Context) bool {
	targets, err := ctx.Core.Targets.ResolveFor(ctx.Actor, ctx.Arg, perm.Where)
	if err != nil {
		return ctx.fail(err)
	}
	var builder strings.Builder
	for i, t := range targets {
		if i > 0 {
			builder.WriteString("\r\n")
		}
		loc := t.Location
		builder.WriteString(fmt.Sprintf("%s: %.1f, %.1f, %.1f in %s (pitch %.0f, yaw %.0f)",
			game.HighlightName(t.Name), loc.X(), loc.Y(), loc.Z(), loc.World, loc.Pitch, loc.Yaw))
		if t.Vehicle != nil {
			builder.WriteString(", riding a " + t.Vehicle.Kind)
		}
	}
	return ctx.reply(builder.String())
})
