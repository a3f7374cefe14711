package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"commandbook/internal/game"
	"commandbook/internal/host"
)

// CommandGroup sorts commands into help sections.
type CommandGroup int

const (
	GroupGeneral CommandGroup = iota
	GroupTeleport
	GroupLocations
	GroupAdmin
)

// Definition describes a single command's metadata.
type Definition struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	Group       CommandGroup
}

// Handler executes a command.
// Returning true indicates the connection should terminate.
type Handler func(*Context) bool

// Command couples metadata with the executable handler.
type Command struct {
	Definition
	Handler Handler
}

// Context provides the runtime data available to a command handler. Player
// is nil when the console runs the command; Actor is always set.
type Context struct {
	World   *game.World
	Player  *game.Player
	Actor   host.Actor
	Core    *Core
	Raw     string
	Arg     string
	Input   string
	Command *Command
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Command)
	ordered    []*Command
)

// Define registers a new command using the provided definition and handler.
// It panics when metadata is incomplete or duplicates an existing command.
func Define(def Definition, handler Handler) *Command {
	if handler == nil {
		panic("commands: handler must not be nil")
	}
	if strings.TrimSpace(def.Name) == "" {
		panic("commands: command must have a name")
	}

	cmd := &Command{Definition: def, Handler: handler}

	registryMu.Lock()
	defer registryMu.Unlock()

	registerName := func(name string) {
		key := strings.ToLower(name)
		if _, exists := registry[key]; exists {
			panic(fmt.Sprintf("commands: duplicate registration for %q", name))
		}
		registry[key] = cmd
	}

	registerName(def.Name)
	for _, alias := range def.Aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		registerName(alias)
	}

	ordered = append(ordered, cmd)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})

	return cmd
}

// All returns the registered commands sorted by primary name.
func All() []*Command {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]*Command, len(ordered))
	copy(out, ordered)
	return out
}

// Find resolves a typed command name. Exact names and aliases win, then a
// unique prefix, then a unique name one edit away.
func Find(name string) (*Command, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	if cmd, ok := registry[key]; ok {
		return cmd, true
	}
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	if cmd, ok := uniqueCommand(names, func(n string) bool { return strings.HasPrefix(n, key) }); ok {
		return cmd, true
	}
	return uniqueCommand(names, func(n string) bool { return editDistance(key, n) <= 1 })
}

// uniqueCommand returns the single command whose name or alias satisfies
// match. Several names of the same command count once.
func uniqueCommand(names []string, match func(string) bool) (*Command, bool) {
	var found *Command
	for _, n := range names {
		if !match(n) {
			continue
		}
		if found != nil && found != registry[n] {
			return nil, false
		}
		found = registry[n]
	}
	return found, found != nil
}

// editDistance counts insertions, deletions, substitutions and swaps of
// adjacent letters.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(ra)][len(rb)]
}

func (c *Core) run(world *game.World, player *game.Player, actor host.Actor, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, ok := Find(parts[0])
	if !ok {
		actor.Message("Unknown command. Type 'help'.")
		return false
	}
	if world.CommandDisabled(cmd.Name) {
		actor.Message(game.Style(fmt.Sprintf("The %s command is disabled.", cmd.Name), game.AnsiYellow))
		return false
	}

	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), parts[0]))
	ctx := &Context{
		World:   world,
		Player:  player,
		Actor:   actor,
		Core:    c,
		Raw:     line,
		Arg:     arg,
		Input:   parts[0],
		Command: cmd,
	}
	return cmd.Handler(ctx)
}

// Dispatch parses the input line, looks up the command, and executes it for
// a connected player. It has the shape game.ListenAndServe expects.
func (c *Core) Dispatch(world *game.World, player *game.Player, line string) bool {
	return c.run(world, player, player.Actor(), line)
}

// RunConsole executes line for a non-player actor such as the remote
// console. It has the shape console.Dispatcher expects.
func (c *Core) RunConsole(actor host.Actor, line string) {
	c.run(c.World, nil, actor, line)
}
