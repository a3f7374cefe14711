package commands

import "strings"

var Home = Define(Definition{
	Name:        "home",
	Usage:       "home [name] [world]",
	Description: "teleport to your home, or somebody else's",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	args := strings.Fields(ctx.Arg)
	if len(args) > 2 {
		return ctx.usage()
	}
	return goToPlace(ctx, "home", homeNodes, args)
})

var SetHome = Define(Definition{
	Name:        "sethome",
	Usage:       "sethome [name]",
	Description: "set your home to where you stand",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	return setPlace(ctx, ctx.Core.Homes, homeNodes, strings.TrimSpace(ctx.Arg))
})

var DelHome = Define(Definition{
	Name:        "delhome",
	Usage:       "delhome [name] [world]",
	Description: "remove a home",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	return removePlace(ctx, ctx.Core.Homes, homeNodes, strings.Fields(ctx.Arg))
})

var Homes = Define(Definition{
	Name:        "homes",
	Usage:       "homes [world]",
	Description: "list homes",
	Group:       GroupLocations,
}, func(ctx *Context) bool {
	return listPlaces(ctx, ctx.Core.Homes, homeNodes, strings.TrimSpace(ctx.Arg))
})
