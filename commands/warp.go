package commands

import "strings"

var Warp = Define(Definition{
	Name:        "warp",
	Usage:       "warp <name> [world]",
	Description: "teleport to a warp",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	args := strings.Fields(ctx.Arg)
	if len(args) == 0 || len(args) > 2 {
		return ctx.usage()
	}
	return goToPlace(ctx, "warp", warpNodes, args)
})

var SetWarp = Define(Definition{
	Name:        "setwarp",
	Usage:       "setwarp <name>",
	Description: "create a warp where you stand",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	name := strings.TrimSpace(ctx.Arg)
	if name == "" {
		return ctx.usage()
	}
	return setPlace(ctx, ctx.Core.Warps, warpNodes, name)
})

var DelWarp = Define(Definition{
	Name:        "delwarp",
	Usage:       "delwarp <name> [world]",
	Description: "remove a warp",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	args := strings.Fields(ctx.Arg)
	if len(args) == 0 {
		return ctx.usage()
	}
	return removePlace(ctx, ctx.Core.Warps, warpNodes, args)
})

var Warps = Define(Definition{
	Name:        "warps",
	Usage:       "warps [world]",
	Description: "list warps",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	return listPlaces(ctx, ctx.Core.Warps, warpNodes, strings.TrimSpace(ctx.Arg))
})
