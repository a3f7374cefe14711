package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
)

var CommandToggle = Define(Definition{
	Name:        "command",
	Usage:       "command <name> <on|off>",
	Description: "enable or disable a command (admin only)",
	Group:       GroupAdmin,
}, func(ctx *Context) bool {
	if ctx.Player != nil && !ctx.Player.IsAdmin {
		return ctx.warn("Only admins may manage commands.")
	}
	parts := strings.Fields(ctx.Arg)
	if len(parts) != 2 {
		return ctx.usage()
	}
	targetName := parts[0]
	toggle := strings.ToLower(parts[1])
	var enable bool
	switch toggle {
	case "on", "enable", "enabled", "true":
		enable = true
	case "off", "disable", "disabled", "false":
		enable = false
	default:
		return ctx.usage()
	}

	target, ok := Find(targetName)
	if !ok || target == nil {
		return ctx.warn(fmt.Sprintf("Unknown command: %s", targetName))
	}
	if strings.EqualFold(target.Name, "command") {
		return ctx.warn("The command toggle cannot disable itself.")
	}

	disabled := ctx.World.CommandDisabled(target.Name)
	if enable {
		if !disabled {
			return ctx.warn(fmt.Sprintf("Command %s is already enabled.", target.Name))
		}
		ctx.World.SetCommandDisabled(target.Name, false)
		return ctx.reply(fmt.Sprintf("Command %s is now enabled.", game.Style(target.Name, game.AnsiCyan)))
	}
	if disabled {
		return ctx.warn(fmt.Sprintf("Command %s is already disabled.", target.Name))
	}
	ctx.World.SetCommandDisabled(target.Name, true)
	return ctx.reply(fmt.Sprintf("Command %s is now disabled.", game.Style(target.Name, game.AnsiYellow)))
})
