package teleport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"commandbook/internal/host"
	"commandbook/internal/host/hosttest"
	"commandbook/internal/perm"
	"commandbook/internal/session"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

type fixture struct {
	host  *hosttest.Host
	clock *testClock
	ex    *Executor
}

func newFixture(t *testing.T, grants map[string][]string) *fixture {
	t.Helper()
	h := hosttest.New(
		hosttest.FlatWorld("world", host.EnvNormal),
		hosttest.FlatWorld("world_nether", host.EnvNether),
	)
	file := perm.File{Users: make(map[string]*perm.User)}
	for name, nodes := range grants {
		file.Users[name] = &perm.User{Permissions: nodes}
	}
	checker, err := perm.NewGroupChecker(file)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	clock := &testClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := session.NewStore(session.DefaultSettings(), h, nil)
	store.SetClock(clock.now)
	ex := New(h, checker, store, DefaultConfig(), nil)
	h.OnTeleport = ex.HandleTeleport
	return &fixture{host: h, clock: clock, ex: ex}
}

func (f *fixture) player(t *testing.T, name string) host.PlayerSummary {
	t.Helper()
	for _, p := range f.host.OnlinePlayers() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no player %s", name)
	return host.PlayerSummary{}
}

func lastMessage(h *hosttest.Host, p host.PlayerSummary) string {
	msgs := h.Messages(p.UUID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func TestTeleportSelfRecordsHistory(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport}})
	start := host.At("world", 0.5, 64, 0.5)
	alice := f.host.AddPlayer("alice", start)

	dest := host.At("world", 10.5, 64, 10.5)
	n, err := f.ex.Teleport(f.host.Actor(alice.UUID), []host.PlayerSummary{alice}, dest, Options{})
	if err != nil || n != 1 {
		t.Fatalf("teleport = %d, %v", n, err)
	}
	if got := f.player(t, "alice").Location.Pos; got != dest.Pos {
		t.Fatalf("alice at %v, want %v", got, dest.Pos)
	}
	if got := lastMessage(f.host, alice); got != "Teleported." {
		t.Fatalf("alice told %q", got)
	}
	history := f.ex.Sessions().Session(alice.UUID).History()
	if len(history) != 1 || !history[0].Equal(start) {
		t.Fatalf("history = %v, want the starting point", history)
	}
}

func TestTeleportOthersInformsEveryone(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world", 3, 64, 3))
	carol := f.host.AddPlayer("carol", host.At("world_nether", 3, 64, 3))
	console := host.NewConsole(nil)
	var told []string
	console.Redirect(func(s string) { told = append(told, s) })

	dest := host.At("world", 50.5, 70, 50.5)
	n, err := f.ex.Teleport(console, []host.PlayerSummary{bob, carol}, dest, Options{})
	if err != nil || n != 2 {
		t.Fatalf("teleport = %d, %v", n, err)
	}
	if got := lastMessage(f.host, bob); got != "You've been teleported by *Console*." {
		t.Fatalf("bob told %q", got)
	}
	if got := lastMessage(f.host, carol); got != "You've been teleported by *Console* to world 'world'." {
		t.Fatalf("carol told %q", got)
	}
	if len(told) != 1 || told[0] != "2 teleported." {
		t.Fatalf("console told %v", told)
	}
}

func TestTeleportSilentSendsNothing(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world", 3, 64, 3))
	console := host.NewConsole(nil)
	var told []string
	console.Redirect(func(s string) { told = append(told, s) })

	if _, err := f.ex.Teleport(console, []host.PlayerSummary{bob}, host.At("world", 9, 64, 9), Options{Silent: true}); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	if len(f.host.Messages(bob.UUID)) != 0 || len(told) != 0 {
		t.Fatalf("silent teleport sent %v / %v", f.host.Messages(bob.UUID), told)
	}
}

func TestTeleportOtherNeedsPermission(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport}})
	alice := f.host.AddPlayer("alice", host.At("world", 0, 64, 0))
	bob := f.host.AddPlayer("bob", host.At("world", 3, 64, 3))

	_, err := f.ex.Teleport(f.host.Actor(alice.UUID), []host.PlayerSummary{alice, bob}, host.At("world", 9, 64, 9), Options{})
	if !errors.Is(err, host.ErrPermissionDenied) {
		t.Fatalf("got %v, want permission denied", err)
	}
	if len(f.host.Moves) != 0 {
		t.Fatalf("nobody should have moved, got %v", f.host.Moves)
	}
}

func TestExecuteKeepsRotationAndAppliesOffsets(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world", 10, 64, 20).WithRotation(15, 90))

	dest := host.At("world", 0, 5, 100)
	if _, err := f.ex.Execute(host.NewConsole(nil), []host.PlayerSummary{bob}, dest, Options{Relative: [3]bool{true, true, false}}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := f.player(t, "bob").Location
	if got.Pos != (mgl64.Vec3{10, 69, 100}) {
		t.Fatalf("bob at %v, want (10,69,100)", got.Pos)
	}
	if got.Pitch != 15 || got.Yaw != 90 {
		t.Fatalf("rotation = %v/%v, want 15/90", got.Pitch, got.Yaw)
	}
	if len(f.host.Chunks) != 1 {
		t.Fatalf("expected the destination chunk to be loaded")
	}
}

func TestExecuteCarriesVehicle(t *testing.T) {
	f := newFixture(t, map[string][]string{"bob": {perm.Node(perm.TeleportVehicle, "minecart")}})
	bob := f.host.AddPlayer("bob", host.At("world", 0, 64, 0))
	cart := f.host.Seat(bob.UUID, "minecart")
	carol := f.host.AddPlayer("carol", host.At("world", 0, 64, 0))
	boat := f.host.Seat(carol.UUID, "boat")
	bob, carol = f.player(t, "bob"), f.player(t, "carol")

	dest := host.At("world", 40.5, 64, 40.5)
	if _, err := f.ex.Execute(host.NewConsole(nil), []host.PlayerSummary{bob, carol}, dest, Options{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.host.Mounted[bob.UUID] != cart || f.host.VehicleLocation(cart).Pos != dest.Pos {
		t.Fatalf("bob should ride the cart at the destination")
	}
	if _, ok := f.host.Mounted[carol.UUID]; ok {
		t.Fatalf("carol may not take the boat along")
	}
	if f.host.VehicleLocation(boat).Pos == dest.Pos {
		t.Fatalf("the boat should stay behind")
	}
}

func TestCallAndBring(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Call}})
	alice := f.host.AddPlayer("alice", host.At("world", 0, 64, 0))
	bob := f.host.AddPlayer("bob", host.At("world", 100.5, 64, 100.5))

	if err := f.ex.Call(f.host.Actor(alice.UUID), bob); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := lastMessage(f.host, alice); got != "Teleport request sent." {
		t.Fatalf("alice told %q", got)
	}
	if got := lastMessage(f.host, bob); !strings.Contains(got, "alice requests a teleport") {
		t.Fatalf("bob told %q", got)
	}

	n, err := f.ex.Bring(f.host.Actor(bob.UUID), []host.PlayerSummary{alice})
	if err != nil || n != 1 {
		t.Fatalf("bring = %d, %v", n, err)
	}
	if got := f.player(t, "alice").Location.Pos; got != bob.Location.Pos {
		t.Fatalf("alice at %v, want %v", got, bob.Location.Pos)
	}
	if got := lastMessage(f.host, alice); got != "Your teleport request to bob was accepted." {
		t.Fatalf("alice told %q", got)
	}
	if got := lastMessage(f.host, bob); got != "Player teleported." {
		t.Fatalf("bob told %q", got)
	}

	if _, err := f.ex.Bring(f.host.Actor(bob.UUID), []host.PlayerSummary{f.player(t, "alice")}); !errors.Is(err, host.ErrNotBringable) {
		t.Fatalf("second bring = %v, want not bringable", err)
	}
}

func TestCallTooSoon(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Call}})
	alice := f.host.AddPlayer("alice", host.At("world", 0, 64, 0))
	bob := f.host.AddPlayer("bob", host.At("world", 10, 64, 10))
	actor := f.host.Actor(alice.UUID)

	if err := f.ex.Call(actor, bob); err != nil {
		t.Fatalf("call: %v", err)
	}
	f.clock.t = f.clock.t.Add(10 * time.Second)
	if err := f.ex.Call(actor, bob); !errors.Is(err, host.ErrTooSoon) {
		t.Fatalf("second call = %v, want too soon", err)
	}
	f.clock.t = f.clock.t.Add(21 * time.Second)
	if err := f.ex.Call(actor, bob); err != nil {
		t.Fatalf("call after cooldown: %v", err)
	}
}

func TestBringExpiredRequest(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Call}})
	alice := f.host.AddPlayer("alice", host.At("world", 0, 64, 0))
	bob := f.host.AddPlayer("bob", host.At("world", 10, 64, 10))

	if err := f.ex.Call(f.host.Actor(alice.UUID), bob); err != nil {
		t.Fatalf("call: %v", err)
	}
	f.clock.t = f.clock.t.Add(6 * time.Minute)
	if _, err := f.ex.Bring(f.host.Actor(bob.UUID), []host.PlayerSummary{alice}); !errors.Is(err, host.ErrNotBringable) {
		t.Fatalf("bring = %v, want not bringable", err)
	}
}

func TestCallNeedsPlayer(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world", 10, 64, 10))
	if err := f.ex.Call(host.NewConsole(nil), bob); !errors.Is(err, host.ErrRequiresPlayer) {
		t.Fatalf("got %v, want requires player", err)
	}
}

func TestBringWithPermission(t *testing.T) {
	f := newFixture(t, map[string][]string{"bob": {perm.TeleportOther}})
	alice := f.host.AddPlayer("alice", host.At("world_nether", 0, 64, 0))
	carol := f.host.AddPlayer("carol", host.At("world", 7, 64, 7))
	bob := f.host.AddPlayer("bob", host.At("world", 10.5, 64, 10.5))

	n, err := f.ex.Bring(f.host.Actor(bob.UUID), []host.PlayerSummary{alice, carol})
	if err != nil || n != 2 {
		t.Fatalf("bring = %d, %v", n, err)
	}
	if got := lastMessage(f.host, bob); got != "2 teleported." {
		t.Fatalf("bob told %q", got)
	}
}

func TestReturn(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport, perm.Return}})
	start := host.At("world", 0.5, 64, 0.5)
	alice := f.host.AddPlayer("alice", start)
	actor := f.host.Actor(alice.UUID)

	if err := f.ex.Return(actor, alice); !errors.Is(err, host.ErrNoHistory) {
		t.Fatalf("return with no history = %v", err)
	}
	if _, err := f.ex.Teleport(actor, []host.PlayerSummary{alice}, host.At("world", 30.5, 64, 30.5), Options{}); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	if err := f.ex.Return(actor, f.player(t, "alice")); err != nil {
		t.Fatalf("return: %v", err)
	}
	if got := f.player(t, "alice").Location; !got.Equal(start) {
		t.Fatalf("alice at %v, want %v", got, start)
	}
	if got := lastMessage(f.host, alice); got != "You've been returned." {
		t.Fatalf("alice told %q", got)
	}
	if h := f.ex.Sessions().Session(alice.UUID).History(); len(h) != 0 {
		t.Fatalf("the return itself was recorded: %v", h)
	}
	if err := f.ex.Return(actor, f.player(t, "alice")); !errors.Is(err, host.ErrNoHistory) {
		t.Fatalf("second return = %v, want no history", err)
	}
}

func TestReturnOtherNeedsPermission(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Return}})
	alice := f.host.AddPlayer("alice", host.At("world", 0, 64, 0))
	bob := f.host.AddPlayer("bob", host.At("world", 5, 64, 5))
	f.ex.Sessions().Session(bob.UUID).Remember(host.At("world", 1, 64, 1))

	if err := f.ex.Return(f.host.Actor(alice.UUID), bob); !errors.Is(err, host.ErrPermissionDenied) {
		t.Fatalf("got %v, want permission denied", err)
	}
	if h := f.ex.Sessions().Session(bob.UUID).History(); len(h) != 1 {
		t.Fatalf("history should be untouched, got %v", h)
	}
}

func TestReturnKeepsHistoryWhenTeleportFails(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport, perm.Return}})
	alice := f.host.AddPlayer("alice", host.At("world", 5.5, 64, 5.5))
	back := host.At("world", 40.5, 64, 40.5)
	sess := f.ex.Sessions().Session(alice.UUID)
	sess.Remember(back)

	f.host.TeleportErr = errors.New("world unloaded")
	if err := f.ex.Return(f.host.Actor(alice.UUID), alice); err == nil {
		t.Fatalf("return succeeded although the teleport failed")
	}
	if h := sess.History(); len(h) != 1 || !h[0].Equal(back) {
		t.Fatalf("history = %v, want %v restored", h, back)
	}
	if _, ok := sess.IgnoreLocation(); ok {
		t.Fatalf("suppression token left armed after a failed teleport")
	}

	f.host.TeleportErr = nil
	if err := f.ex.Return(f.host.Actor(alice.UUID), alice); err != nil {
		t.Fatalf("return: %v", err)
	}
	if got := f.player(t, "alice").Location; !got.Equal(back) {
		t.Fatalf("alice at %v, want %v", got, back)
	}
}

func TestSpawnUsesEachWorld(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world_nether", 30, 64, 30))
	carol := f.host.AddPlayer("carol", host.At("world", 30, 64, 30))
	console := host.NewConsole(nil)
	var told []string
	console.Redirect(func(s string) { told = append(told, s) })

	n, err := f.ex.Spawn(console, []host.PlayerSummary{bob, carol}, false)
	if err != nil || n != 2 {
		t.Fatalf("spawn = %d, %v", n, err)
	}
	if got := f.player(t, "bob").Location; got.World != "world_nether" || got.Pos != (mgl64.Vec3{0.5, 64, 0.5}) {
		t.Fatalf("bob at %v", got)
	}
	if got := lastMessage(f.host, carol); got != "Teleported to spawn by *Console*." {
		t.Fatalf("carol told %q", got)
	}
	if len(told) != 1 || told[0] != "2 teleported to spawn." {
		t.Fatalf("console told %v", told)
	}
}

func TestJoinAndQuitTrackSessions(t *testing.T) {
	f := newFixture(t, nil)
	bob := f.host.AddPlayer("bob", host.At("world", 0, 64, 0))
	f.ex.HandleJoin(bob.UUID)
	f.ex.HandleQuit(bob.UUID)
	f.host.RemovePlayer(bob.UUID)
	if _, ok := f.ex.Sessions().Lookup(bob.UUID); !ok {
		t.Fatalf("session should survive a quit until swept")
	}
}
