package commands

import (
	"fmt"
	"strings"

	"commandbook/internal/game"
)

var helpSections = []struct {
	group CommandGroup
	title string
}{
	{GroupGeneral, "Commands:"},
	{GroupTeleport, "Teleporting:"},
	{GroupLocations, "Homes and warps:"},
	{GroupAdmin, "Administration:"},
}

var Help = Define(Definition{
	Name:        "help",
	Aliases:     []string{"?"},
	Usage:       "help [command]",
	Description: "show this message",
}, func(ctx *Context) bool {
	if name := strings.TrimSpace(ctx.Arg); name != "" {
		cmd, ok := Find(name)
		if !ok {
			return ctx.warn(fmt.Sprintf("No help for %s.", name))
		}
		text := fmt.Sprintf("%s - %s", cmd.Usage, cmd.Description)
		if len(cmd.Aliases) > 0 {
			text += "\r\nAliases: " + strings.Join(cmd.Aliases, ", ")
		}
		return ctx.reply(text)
	}

	admin := ctx.Player == nil || ctx.Player.IsAdmin
	var builder strings.Builder
	for _, section := range helpSections {
		if section.group == GroupAdmin && !admin {
			continue
		}
		builder.WriteString(helpMessage(section.title, commandsForGroup(ctx.World, section.group)))
	}
	return ctx.reply(strings.TrimRight(builder.String(), "\r\n"))
})

func helpMessage(title string, commands []*Command) string {
	if len(commands) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(game.Style(title, game.AnsiBold, game.AnsiUnderline) + "\r\n")
	for _, cmd := range commands {
		usage := cmd.Usage
		if strings.TrimSpace(usage) == "" {
			usage = cmd.Name
		}
		builder.WriteString(fmt.Sprintf("  %-28s - %s\r\n", usage, cmd.Description))
	}
	return builder.String()
}

func commandsForGroup(world *game.World, group CommandGroup) []*Command {
	all := All()
	filtered := make([]*Command, 0, len(all))
	for _, cmd := range all {
		if cmd.Group == group && !world.CommandDisabled(cmd.Name) {
			filtered = append(filtered, cmd)
		}
	}
	return filtered
}
