package commands

import (
	"fmt"
	"strings"
	"time"

	"commandbook/internal/game"
	"commandbook/internal/perm"
)

var Whois = Define(Definition{
	Name:        "whois",
	Usage:       "whois <player>",
	Description: "show account details for a player",
}, func(ctx *Context) bool {
	if ctx.Arg == "" {
		return ctx.usage()
	}
	t, err := ctx.Core.Targets.MatchSingle(ctx.Actor, ctx.Arg)
	if err != nil {
		return ctx.fail(err)
	}
	if err := ctx.require(perm.Who); err != nil {
		return ctx.fail(err)
	}

	var builder strings.Builder
	builder.WriteString(game.Style(t.Name, game.AnsiBold, game.AnsiCyan))
	if t.DisplayName != t.Name {
		builder.WriteString(" (" + t.DisplayName + ")")
	}
	builder.WriteString("\r\n  ID:       " + t.UUID.String())
	builder.WriteString("\r\n  World:    " + t.Location.World)
	if stats, ok := ctx.World.AccountStats(t.Name); ok {
		builder.WriteString("\r\n  Created:  " + formatTime(stats.CreatedAt))
		builder.WriteString("\r\n  Last on:  " + formatTime(stats.LastLogin))
		builder.WriteString(fmt.Sprintf("\r\n  Logins:   %d", stats.TotalLogins))
	}
	return ctx.reply(builder.String())
})

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
