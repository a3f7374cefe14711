package commands

import (
	"strings"

	"commandbook/internal/game"
	"commandbook/internal/host"
	"commandbook/internal/location"
	"commandbook/internal/perm"
	"commandbook/internal/places"
	"commandbook/internal/target"
	"commandbook/internal/teleport"
)

// Core bundles the resolvers and stores command handlers work with.
type Core struct {
	World     *game.World
	Perms     perm.Checker
	Targets   *target.Resolver
	Locations *location.Resolver
	Teleports *teleport.Executor
	// Homes and Warps may be nil when that kind of location is disabled.
	Homes *places.Store
	Warps *places.Store
	// Reload re-reads configuration that may change at runtime. Optional.
	Reload func() error
}

func (c *Core) stores() []*places.Store {
	var out []*places.Store
	for _, s := range []*places.Store{c.Homes, c.Warps} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type adminOverride struct {
	base  perm.Checker
	world *game.World
}

// AdminOverride grants every node to online administrators and defers to
// base for everybody else.
func AdminOverride(base perm.Checker, world *game.World) perm.Checker {
	return adminOverride{base: base, world: world}
}

func (a adminOverride) admin(actor host.Actor) bool {
	id, ok := actor.PlayerID()
	return ok && a.world.IsAdmin(id)
}

func (a adminOverride) Has(actor host.Actor, node string) bool {
	return a.admin(actor) || a.base.Has(actor, node)
}

func (a adminOverride) HasIn(actor host.Actor, world, node string) bool {
	return a.admin(actor) || a.base.HasIn(actor, world, node)
}

func (ctx *Context) reply(text string) bool {
	ctx.Actor.Message(text)
	return false
}

func (ctx *Context) warn(text string) bool {
	ctx.Actor.Message(game.Style(text, game.AnsiYellow))
	return false
}

// fail renders err to the actor and keeps the connection.
func (ctx *Context) fail(err error) bool {
	return ctx.warn(err.Error())
}

func (ctx *Context) usage() bool {
	return ctx.warn("Usage: " + ctx.Command.Usage)
}

// self returns the invoking player, or a RequiresPlayer error for the
// console.
func (ctx *Context) self() (host.PlayerSummary, error) {
	return host.CheckPlayer(ctx.World, ctx.Actor)
}

func (ctx *Context) require(node string) error {
	return perm.Require(ctx.Core.Perms, ctx.Actor, node)
}

// splitFlags separates leading single-letter flags such as -s from the
// positional arguments. Unknown flags are kept as arguments so negative
// coordinates still parse.
func splitFlags(arg, known string) (map[rune]bool, []string) {
	flags := make(map[rune]bool)
	fields := strings.Fields(arg)
	i := 0
	for ; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 2 || f[0] != '-' {
			break
		}
		letters := f[1:]
		if strings.Trim(letters, known) != "" {
			break
		}
		for _, r := range letters {
			flags[r] = true
		}
	}
	return flags, fields[i:]
}

// joinCoordinates accepts "x y z" typed as separate words and folds it into
// the "x,y,z" location syntax.
func joinCoordinates(args []string) []string {
	if len(args) < 3 {
		return args
	}
	tail := args[len(args)-3:]
	for _, a := range tail {
		if !looksNumeric(a) {
			return args
		}
	}
	out := append([]string(nil), args[:len(args)-3]...)
	return append(out, strings.Join(tail, ","))
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("~-+.0123456789", r) {
			return false
		}
	}
	return true
}
