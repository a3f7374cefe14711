package commands

import "commandbook/internal/game"

var Reload = Define(Definition{
	Name:        "reload",
	Usage:       "reload",
	Description: "re-read permissions and re-check saved locations (admin only)",
	Group:       GroupAdmin,
}, func(ctx *Context) bool {
	if ctx.Player != nil && !ctx.Player.IsAdmin {
		return ctx.warn("Only admins may reload the server.")
	}
	if ctx.Core.Reload == nil {
		return ctx.warn("Reloading is not available.")
	}
	ctx.reply(game.Style("Reloading...", game.AnsiMagenta, game.AnsiBold))
	if err := ctx.Core.Reload(); err != nil {
		return ctx.warn("Reload failed: " + err.Error())
	}
	return ctx.reply(game.Style("Reload complete.", game.AnsiGreen))
})
