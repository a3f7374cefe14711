package commands

import (
	"regexp"
	"strings"
	"testing"

	"commandbook/internal/game"
	"commandbook/internal/host"
	"commandbook/internal/location"
	"commandbook/internal/perm"
	"commandbook/internal/places"
	"commandbook/internal/session"
	"commandbook/internal/target"
	"commandbook/internal/teleport"
)

// fixture is a world with two dimensions and a Core over it. Players named
// in grants hold exactly those permission nodes; anybody else holds none.
type fixture struct {
	world   *game.World
	core    *Core
	console *host.Console
	said    []string
}

func newFixture(t *testing.T, grants map[string][]string) *fixture {
	t.Helper()
	overworld, err := game.NewDimension(game.DimensionConfig{Name: "world", Environment: host.EnvNormal, Ground: 64, MaxHeight: 256})
	if err != nil {
		t.Fatalf("dimension: %v", err)
	}
	nether, err := game.NewDimension(game.DimensionConfig{Name: "world_nether", Environment: host.EnvNether, Ground: 32, MaxHeight: 128})
	if err != nil {
		t.Fatalf("dimension: %v", err)
	}
	world, err := game.NewWorld(overworld, nether)
	if err != nil {
		t.Fatalf("world: %v", err)
	}

	file := perm.File{Users: make(map[string]*perm.User)}
	for name, nodes := range grants {
		file.Users[name] = &perm.User{Permissions: nodes}
	}
	checker, err := perm.NewGroupChecker(file)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	perms := AdminOverride(checker, world)

	f := &fixture{world: world}
	f.console = host.NewConsole(func(text string) {
		f.said = append(f.said, game.Trim(ansiPattern.ReplaceAllString(text, "")))
	})
	sessions := session.NewStore(session.DefaultSettings(), world, nil)
	homes := places.NewStore("home", false, nil, nil)
	warps := places.NewStore("warp", false, nil, nil)
	targets := target.New(world, perms, f.console, true)
	executor := teleport.New(world, perms, sessions, teleport.DefaultConfig(), nil)
	world.AddListener(executor)

	f.core = &Core{
		World:     world,
		Perms:     perms,
		Targets:   targets,
		Locations: location.New(world, perms, targets, homes, warps),
		Teleports: executor,
		Homes:     homes,
		Warps:     warps,
	}
	return f
}

func (f *fixture) run(t *testing.T, p *game.Player, line string) []string {
	t.Helper()
	drainOutput(p.Output)
	if quit := f.core.Dispatch(f.world, p, line); quit {
		t.Fatalf("%q returned true, want false", line)
	}
	return drainOutput(p.Output)
}

func (f *fixture) runConsole(line string) string {
	f.said = nil
	f.core.RunConsole(f.console, line)
	return strings.Join(f.said, "\n")
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t, nil)
	player := newTestPlayer(f.world, "alice")

	out := strings.Join(f.run(t, player, "frobnicate"), "\n")
	if !strings.Contains(out, "Unknown command") {
		t.Fatalf("output = %q", out)
	}
}

func TestDispatchAutocompletePrefix(t *testing.T) {
	f := newFixture(t, nil)
	player := newTestPlayer(f.world, "reader")

	msgs := f.run(t, player, "hel")
	sawHelp := false
	for _, msg := range msgs {
		if strings.Contains(msg, "Unknown command") {
			t.Fatalf("received unknown command message: %v", msgs)
		}
		if strings.Contains(msg, "Commands:") {
			sawHelp = true
		}
	}
	if !sawHelp {
		t.Fatalf("did not receive help output: %v", msgs)
	}
}

func TestDispatchAutocompleteSimilarity(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Who}})
	alice := newTestPlayer(f.world, "alice")
	newTestPlayer(f.world, "bob")

	out := strings.Join(f.run(t, alice, "woh"), "\n")
	if !strings.Contains(out, "Other players online: bob") {
		t.Fatalf("typo did not reach who: %q", out)
	}
}

func TestFindPrefersExactAlias(t *testing.T) {
	cmd, ok := Find("tp")
	if !ok || cmd.Name != "teleport" {
		t.Fatalf("Find(tp) = %v, %v", cmd, ok)
	}
	if _, ok := Find("set"); ok {
		t.Fatalf("ambiguous prefix resolved")
	}
}

func TestAliasesRegistered(t *testing.T) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, alias := range []string{"tp", "tpa", "tphere", "back", "pos"} {
		if _, ok := registry[alias]; !ok {
			t.Fatalf("alias %s not registered", alias)
		}
	}
}

func TestEditDistanceCountsSwaps(t *testing.T) {
	cases := map[[2]string]int{
		{"help", "help"}: 0,
		{"hepl", "help"}: 1,
		{"hel", "help"}:  1,
		{"warp", "wrap"}: 1,
		{"home", "nick"}: 4,
	}
	for in, want := range cases {
		if got := editDistance(in[0], in[1]); got != want {
			t.Fatalf("editDistance(%q, %q) = %d, want %d", in[0], in[1], got, want)
		}
	}
}

func TestSplitFlagsKeepsNegativeCoordinates(t *testing.T) {
	flags, args := splitFlags("-s bob -10 64 5", "s")
	if !flags['s'] {
		t.Fatalf("flag s not set")
	}
	if got := strings.Join(joinCoordinates(args), " "); got != "bob -10,64,5" {
		t.Fatalf("args = %q", got)
	}
}

func TestConsoleRunsCommands(t *testing.T) {
	f := newFixture(t, nil)
	newTestPlayer(f.world, "alice")

	if out := f.runConsole("who"); !strings.Contains(out, "Players online: alice") {
		t.Fatalf("console who = %q", out)
	}
	if out := f.runConsole("sethome"); !strings.Contains(out, "player context is required") {
		t.Fatalf("console sethome = %q", out)
	}
}

func newTestPlayer(world *game.World, name string) *game.Player {
	p := &game.Player{
		Name:   name,
		Output: make(chan string, 64),
	}
	world.AddPlayerForTest(p)
	return p
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func drainOutput(ch chan string) []string {
	t := make([]string, 0)
	for {
		select {
		case msg := <-ch:
			cleaned := game.Trim(ansiPattern.ReplaceAllString(msg, ""))
			if cleaned != "" {
				t = append(t, cleaned)
			}
		default:
			return t
		}
	}
}
