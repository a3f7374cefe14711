package commands

import "commandbook/internal/host"

var Return = Define(Definition{
	Name:        "return",
	Aliases:     []string{"back"},
	Usage:       "return [player]",
	Description: "go back to where you were before your last teleport",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	var subject host.PlayerSummary
	var err error
	if ctx.Arg == "" {
		subject, err = ctx.self()
	} else {
		subject, err = ctx.Core.Targets.MatchSingle(ctx.Actor, ctx.Arg)
	}
	if err != nil {
		return ctx.fail(err)
	}
	if err := ctx.Core.Teleports.Return(ctx.Actor, subject); err != nil {
		return ctx.fail(err)
	}
	return false
})
