package commands

var Put = Define(Definition{
	Name:        "put",
	Usage:       "put <targets>",
	Description: "put players where you are looking",
	Group:       GroupTeleport,
}, func(ctx *Context) bool {
	if ctx.Arg == "" {
		return ctx.usage()
	}
	targets, err := ctx.Core.Targets.Match(ctx.Actor, ctx.Arg)
	if err != nil {
		return ctx.fail(err)
	}
	dest, err := ctx.Core.Locations.Resolve(ctx.Actor, "#target")
	if err != nil {
		return ctx.fail(err)
	}
	if _, err := ctx.Core.Teleports.Put(ctx.Actor, targets, dest); err != nil {
		return ctx.fail(err)
	}
	return false
})
