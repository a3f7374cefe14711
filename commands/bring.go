package commands

var Bring = Define(Definition{
	Name:        "bring",
	Aliases:     []string{"tphere"},
	Usage:       "bring <targets>",
	Description: "bring players to you, or accept a call",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	if ctx.Arg == "" {
		return ctx.usage()
	}
	targets, err := ctx.Core.Targets.Match(ctx.Actor, ctx.Arg)
	if err != nil {
		return ctx.fail(err)
	}
	if _, err := ctx.Core.Teleports.Bring(ctx.Actor, targets); err != nil {
		return ctx.fail(err)
	}
	return false
})
