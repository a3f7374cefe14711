package commands

var Call = Define(Definition{
	Name:        "call",
	Aliases:     []string{"tpa"},
	Usage:       "call <player>",
	Description: "ask a player to bring you to them",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	if ctx.Arg == "" {
		return ctx.usage()
	}
	target, err := ctx.Core.Targets.MatchSingle(ctx.Actor, ctx.Arg)
	if err != nil {
		return ctx.fail(err)
	}
	if err := ctx.Core.Teleports.Call(ctx.Actor, target); err != nil {
		return ctx.fail(err)
	}
	return false
})
