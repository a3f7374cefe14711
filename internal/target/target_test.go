package target

import (
	"errors"
	"testing"

	"commandbook/internal/host"
	"commandbook/internal/host/hosttest"
	"commandbook/internal/perm"
)

func newTestResolver(t *testing.T, h *hosttest.Host, users map[string][]string) *Resolver {
	t.Helper()
	file := perm.File{Users: make(map[string]*perm.User)}
	for name, nodes := range users {
		file.Users[name] = &perm.User{Permissions: nodes}
	}
	checker, err := perm.NewGroupChecker(file)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	return New(h, checker, host.NewConsole(nil), false)
}

func names(players []host.PlayerSummary) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}

func equalNames(got []host.PlayerSummary, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range n {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func newWorld() *hosttest.Host {
	return hosttest.New(
		hosttest.FlatWorld("world", host.EnvNormal),
		hosttest.FlatWorld("world_nether", host.EnvNether),
	)
}

func TestExactMatchIsCaseInsensitive(t *testing.T) {
	h := newWorld()
	bob := h.AddPlayer("bob", host.At("world", 0, 64, 0))
	h.AddPlayer("bobby", host.At("world", 5, 64, 0))
	r := newTestResolver(t, h, nil)

	got, err := r.Match(host.NewConsole(nil), "@Bob")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got) != 1 || got[0].UUID != bob.UUID {
		t.Fatalf("got %v, want [bob]", names(got))
	}
	if _, err := r.Match(host.NewConsole(nil), "@carol"); !errors.Is(err, host.ErrNoMatches) {
		t.Fatalf("got %v, want NoMatches", err)
	}
}

func TestPrefixMatchKeepsDirectoryOrder(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bobby", host.At("world", 0, 64, 0))
	h.AddPlayer("bobcat", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)

	got, err := r.Match(h.Actor(alice.UUID), "bob")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "bobby", "bobcat") {
		t.Fatalf("got %v, want [bobby bobcat]", names(got))
	}
}

func TestPrefixMatchPutsActorLast(t *testing.T) {
	h := newWorld()
	actor := h.AddPlayer("bo", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world", 0, 64, 0))
	h.AddPlayer("bonnie", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)

	got, err := r.Match(h.Actor(actor.UUID), "bo")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "bob", "bonnie", "bo") {
		t.Fatalf("got %v, want actor last", names(got))
	}
}

func TestPartialMatch(t *testing.T) {
	h := newWorld()
	h.AddPlayer("Notch", host.At("world", 0, 64, 0))
	h.AddPlayer("jeb_", host.At("world", 0, 64, 0))
	h.AddPlayer("Dinnerbone", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)

	got, err := r.Match(host.NewConsole(nil), "*NE")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "Dinnerbone") {
		t.Fatalf("got %v, want [Dinnerbone]", names(got))
	}
}

func TestDisplayNameLookup(t *testing.T) {
	h := newWorld()
	p := h.AddPlayer("steve", host.At("world", 0, 64, 0))
	h.SetDisplayName(p.UUID, "\x1b[31mCaptain\x1b[0m")
	r := newTestResolver(t, h, nil)
	if _, err := r.Match(host.NewConsole(nil), "@captain"); !errors.Is(err, host.ErrNoMatches) {
		t.Fatalf("display names must be ignored unless enabled, got %v", err)
	}
	r.displayNames = true
	got, err := r.Match(host.NewConsole(nil), "@captain")
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v %v, want steve", names(got), err)
	}
}

func TestEveryoneRequiresPermission(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world_nether", 0, 64, 0))
	r := newTestResolver(t, h, map[string][]string{"alice": {perm.TargetsEveryone}})

	got, err := r.Match(h.Actor(alice.UUID), "*")
	if err != nil || len(got) != 2 {
		t.Fatalf("got %v %v, want everyone", names(got), err)
	}

	bob := h.OnlinePlayers()[1]
	if _, err := r.Match(h.Actor(bob.UUID), "*"); !errors.Is(err, host.ErrPermissionDenied) {
		t.Fatalf("got %v, want PermissionDenied", err)
	}
}

func TestWorldGroup(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world", 500, 64, 0))
	h.AddPlayer("carol", host.At("world_nether", 0, 64, 0))
	r := newTestResolver(t, h, map[string][]string{"alice": {"commandbook.targets.world.world"}})

	got, err := r.Match(h.Actor(alice.UUID), "#world")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "alice", "bob") {
		t.Fatalf("got %v, want [alice bob]", names(got))
	}
	if _, err := r.Match(host.NewConsole(nil), "#world"); !errors.Is(err, host.ErrRequiresPlayer) {
		t.Fatalf("got %v, want RequiresPlayer", err)
	}
}

func TestNearGroupUsesSphere(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("close", host.At("world", 10, 64, 10))
	h.AddPlayer("above", host.At("world", 0, 95, 0))
	h.AddPlayer("far", host.At("world", 40, 64, 0))
	h.AddPlayer("nether", host.At("world_nether", 0, 64, 0))
	r := newTestResolver(t, h, map[string][]string{"alice": {perm.TargetsNear}})

	got, err := r.Match(h.Actor(alice.UUID), "#near")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "alice", "close") {
		t.Fatalf("got %v, want [alice close]", names(got))
	}
	for _, p := range got {
		if p.Location.DistanceSquared(alice.Location) >= NearDistanceSquared {
			t.Fatalf("%s is out of range", p.Name)
		}
	}
}

func TestPlayerWorldGroup(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world_nether", 0, 64, 0))
	h.AddPlayer("carol", host.At("world_nether", 9, 64, 0))
	r := newTestResolver(t, h, map[string][]string{"alice": {"commandbook.targets.world.*"}})

	got, err := r.Match(h.Actor(alice.UUID), "#player:bob")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !equalNames(got, "bob", "carol") {
		t.Fatalf("got %v, want [bob carol]", names(got))
	}
}

func TestInvalidGroups(t *testing.T) {
	h := newWorld()
	h.AddPlayer("alice", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)
	for _, expr := range []string{"#nowhere", "#console", "#player", "#world:extra"} {
		if _, err := r.Match(host.NewConsole(nil), expr); !errors.Is(err, host.ErrInvalidGroupToken) {
			t.Fatalf("Match(%q) = %v, want InvalidGroupToken", expr, err)
		}
	}
}

func TestMatchSingleRefusesToGuess(t *testing.T) {
	h := newWorld()
	h.AddPlayer("bobby", host.At("world", 0, 64, 0))
	h.AddPlayer("bobcat", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)

	_, err := r.MatchSingle(host.NewConsole(nil), "bob")
	if !errors.Is(err, host.ErrAmbiguousTarget) {
		t.Fatalf("got %v, want AmbiguousTarget", err)
	}
	if err.Error() != "More than one player found! Use @<name> for exact matching." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	p, err := r.MatchSingle(host.NewConsole(nil), "@bobby")
	if err != nil || p.Name != "bobby" {
		t.Fatalf("got %v %v, want bobby", p.Name, err)
	}
}

func TestMatchPlayerOrConsole(t *testing.T) {
	h := newWorld()
	h.AddPlayer("alice", host.At("world", 0, 64, 0))
	r := newTestResolver(t, h, nil)
	for _, expr := range []string{"#console", "*CONSOLE*", "!"} {
		_, console, err := r.MatchPlayerOrConsole(host.NewConsole(nil), expr)
		if err != nil || !console {
			t.Fatalf("MatchPlayerOrConsole(%q) = %v %v, want console", expr, console, err)
		}
	}
	p, console, err := r.MatchPlayerOrConsole(host.NewConsole(nil), "ali")
	if err != nil || console || p.Name != "alice" {
		t.Fatalf("got %v %v %v, want alice", p.Name, console, err)
	}
}

func TestEmptyDirectory(t *testing.T) {
	r := newTestResolver(t, newWorld(), nil)
	if _, err := r.Match(host.NewConsole(nil), "anyone"); !errors.Is(err, host.ErrNoMatches) {
		t.Fatalf("got %v, want NoMatches", err)
	}
}

func TestResolveForChecksOtherPermission(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world", 0, 64, 0))
	h.AddPlayer("bea", host.At("world_nether", 0, 64, 0))
	r := newTestResolver(t, h, map[string][]string{"alice": {perm.Teleport}})
	actor := h.Actor(alice.UUID)

	self, err := r.ResolveFor(actor, "", perm.Teleport)
	if err != nil || !equalNames(self, "alice") {
		t.Fatalf("got %v %v, want [alice]", names(self), err)
	}
	if _, err := r.ResolveFor(actor, "b", perm.Teleport); !errors.Is(err, host.ErrPermissionDenied) {
		t.Fatalf("got %v, want PermissionDenied", err)
	}
	if _, err := r.ResolveFor(host.NewConsole(nil), "", perm.Teleport); !errors.Is(err, host.ErrRequiresPlayer) {
		t.Fatalf("got %v, want RequiresPlayer", err)
	}
}

func TestResolveForAbortsWholeBatch(t *testing.T) {
	h := newWorld()
	alice := h.AddPlayer("alice", host.At("world", 0, 64, 0))
	h.AddPlayer("bob", host.At("world", 0, 64, 0))
	h.AddPlayer("bea", host.At("world_nether", 0, 64, 0))
	file := perm.File{Users: map[string]*perm.User{
		"alice": {Worlds: map[string][]string{"world": {perm.TeleportOther}}},
	}}
	checker, err := perm.NewGroupChecker(file)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	r := New(h, checker, host.NewConsole(nil), false)

	got, err := r.ResolveFor(h.Actor(alice.UUID), "bob", perm.Teleport)
	if err != nil || !equalNames(got, "bob") {
		t.Fatalf("got %v %v, want [bob]", names(got), err)
	}
	if _, err := r.ResolveFor(h.Actor(alice.UUID), "b", perm.Teleport); !errors.Is(err, host.ErrPermissionDenied) {
		t.Fatalf("nether target must reject the batch, got %v", err)
	}
}
