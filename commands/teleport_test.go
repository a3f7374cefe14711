package commands

import (
	"strings"
	"testing"

	"commandbook/internal/game"
	"commandbook/internal/host"
	"commandbook/internal/perm"
)

func positionOf(t *testing.T, w *game.World, p *game.Player) host.Location {
	t.Helper()
	s, ok := w.Player(p.ID)
	if !ok {
		t.Fatalf("%s is offline", p.Name)
	}
	return s.Location
}

func TestTeleportSelfToPlayer(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport}})
	alice := newTestPlayer(f.world, "alice")
	bob := newTestPlayer(f.world, "bob")
	if err := f.world.Teleport(bob.ID, host.At("world", 20.5, 64, -3.5)); err != nil {
		t.Fatalf("place bob: %v", err)
	}

	out := strings.Join(f.run(t, alice, "tp bob"), "\n")
	if !strings.Contains(out, "Teleported.") {
		t.Fatalf("output = %q", out)
	}
	if got := positionOf(t, f.world, alice); got.X() != 20.5 || got.Z() != -3.5 {
		t.Fatalf("alice at %v", got)
	}
}

func TestTeleportCoordinatesAsWords(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport, perm.LocationsCoords}})
	alice := newTestPlayer(f.world, "alice")

	f.run(t, alice, "tp 10 70 -4")
	got := positionOf(t, f.world, alice)
	if got.X() != 10.5 || got.Y() != 70 || got.Z() != -3.5 || got.World != "world" {
		t.Fatalf("alice at %v, want the centre of block 10,70,-4", got)
	}
}

func TestTeleportRelativeNeedsPermission(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport, perm.LocationsCoords}})
	alice := newTestPlayer(f.world, "alice")
	before := positionOf(t, f.world, alice)

	out := strings.Join(f.run(t, alice, "tp ~ ~5 ~"), "\n")
	if !strings.Contains(out, "You don't have permission.") {
		t.Fatalf("output = %q", out)
	}
	if !positionOf(t, f.world, alice).Equal(before) {
		t.Fatalf("alice moved without permission")
	}
}

func TestTeleportRelativeOffsetsEachTarget(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"op": {perm.Teleport, perm.TeleportOther, perm.LocationsCoords, perm.LocationsRelative, perm.TargetsEveryone},
	})
	op := newTestPlayer(f.world, "op")
	alice := newTestPlayer(f.world, "alice")
	if err := f.world.Teleport(alice.ID, host.At("world", 100.5, 64, 100.5)); err != nil {
		t.Fatalf("place alice: %v", err)
	}

	f.run(t, op, "tp * ~ ~10 ~")
	if got := positionOf(t, f.world, alice); got.X() != 100.5 || got.Y() != 74 || got.Z() != 100.5 {
		t.Fatalf("alice at %v", got)
	}
	if got := positionOf(t, f.world, op); got.Y() != 74 {
		t.Fatalf("op at %v", got)
	}
	if msgs := drainOutput(alice.Output); len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1], "teleported by op") {
		t.Fatalf("alice was not told: %v", msgs)
	}
}

func TestTeleportOthersNeedsOtherPermission(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport}})
	alice := newTestPlayer(f.world, "alice")
	bob := newTestPlayer(f.world, "bob")
	before := positionOf(t, f.world, bob)

	out := strings.Join(f.run(t, alice, "tp bob #spawn:world_nether"), "\n")
	if !strings.Contains(out, "permission") {
		t.Fatalf("output = %q", out)
	}
	if !positionOf(t, f.world, bob).Equal(before) {
		t.Fatalf("bob moved")
	}
}

func TestSilentTeleportTellsNobody(t *testing.T) {
	f := newFixture(t, map[string][]string{"op": {perm.TeleportOther, perm.Spawn}})
	op := newTestPlayer(f.world, "op")
	bob := newTestPlayer(f.world, "bob")

	if out := f.run(t, op, "tp -s bob #spawn:world_nether"); len(out) != 0 {
		t.Fatalf("silent teleport told the actor %v", out)
	}
	if got := positionOf(t, f.world, bob); got.World != "world_nether" {
		t.Fatalf("bob in %s", got.World)
	}
	if msgs := drainOutput(bob.Output); len(msgs) != 0 {
		t.Fatalf("silent teleport told bob %v", msgs)
	}
}

func TestCallThenBring(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Call}})
	alice := newTestPlayer(f.world, "alice")
	bob := newTestPlayer(f.world, "bob")
	if err := f.world.Teleport(bob.ID, host.At("world", -40.5, 64, 12.5)); err != nil {
		t.Fatalf("place bob: %v", err)
	}
	drainOutput(bob.Output)

	out := strings.Join(f.run(t, alice, "call bob"), "\n")
	if !strings.Contains(out, "Teleport request sent.") {
		t.Fatalf("call output = %q", out)
	}
	msgs := strings.Join(drainOutput(bob.Output), "\n")
	if !strings.Contains(msgs, "alice requests a teleport") {
		t.Fatalf("bob was not asked: %q", msgs)
	}

	if out := strings.Join(f.run(t, alice, "call bob"), "\n"); !strings.Contains(out, "Wait a bit") {
		t.Fatalf("second call = %q", out)
	}

	f.run(t, bob, "bring alice")
	if got := positionOf(t, f.world, alice); got.X() != -40.5 || got.Z() != 12.5 {
		t.Fatalf("alice at %v", got)
	}
	if msgs := strings.Join(drainOutput(alice.Output), "\n"); !strings.Contains(msgs, "request to bob was accepted") {
		t.Fatalf("alice was not told: %q", msgs)
	}
}

func TestBringWithoutCallIsRefused(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestPlayer(f.world, "alice")
	bob := newTestPlayer(f.world, "bob")
	before := positionOf(t, f.world, alice)

	out := strings.Join(f.run(t, bob, "bring alice"), "\n")
	if !strings.Contains(out, "didn't request a teleport") {
		t.Fatalf("output = %q", out)
	}
	if !positionOf(t, f.world, alice).Equal(before) {
		t.Fatalf("alice moved")
	}
}

func TestReturnWalksHistoryBack(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Teleport, perm.Return, perm.LocationsCoords}})
	alice := newTestPlayer(f.world, "alice")
	start := positionOf(t, f.world, alice)

	f.run(t, alice, "tp 50 64 50")
	f.run(t, alice, "tp 80 64 80")

	hist := strings.Join(f.run(t, alice, "history"), "\n")
	if !strings.Contains(hist, "1. 50,64,50@world") {
		t.Fatalf("history = %q", hist)
	}

	if out := strings.Join(f.run(t, alice, "back"), "\n"); !strings.Contains(out, "You've been returned.") {
		t.Fatalf("return output = %q", out)
	}
	if got := positionOf(t, f.world, alice); got.X() != 50.5 {
		t.Fatalf("alice at %v", got)
	}
	f.run(t, alice, "return")
	if got := positionOf(t, f.world, alice); !got.Equal(start) {
		t.Fatalf("alice at %v, want %v", got, start)
	}
	if out := strings.Join(f.run(t, alice, "return"), "\n"); !strings.Contains(out, "no past location") {
		t.Fatalf("empty history = %q", out)
	}
}

func TestPutUsesTargetBlock(t *testing.T) {
	f := newFixture(t, map[string][]string{"op": {perm.TeleportOther, perm.LocationsTarget}})
	op := newTestPlayer(f.world, "op")
	bob := newTestPlayer(f.world, "bob")
	f.world.SetRotation(op, 90, 0)

	f.run(t, op, "put bob")
	got := positionOf(t, f.world, bob)
	if got.X() != 0.5 || got.Y() != 64 || got.Z() != 0.5 {
		t.Fatalf("bob at %v, want on top of the block below op", got)
	}
}

func TestSpawnWorldAndTargets(t *testing.T) {
	f := newFixture(t, map[string][]string{
		"alice": {perm.Spawn},
		"op":    {perm.Spawn, perm.Other(perm.Spawn)},
	})
	alice := newTestPlayer(f.world, "alice")
	op := newTestPlayer(f.world, "op")

	if out := strings.Join(f.run(t, alice, "spawn world_nether"), "\n"); !strings.Contains(out, "Teleported to spawn.") {
		t.Fatalf("output = %q", out)
	}
	if got := positionOf(t, f.world, alice); got.World != "world_nether" || got.Y() != 32 {
		t.Fatalf("alice at %v", got)
	}

	f.run(t, op, "spawn alice")
	if got := positionOf(t, f.world, alice); got.World != "world_nether" {
		t.Fatalf("spawn moved alice to another world: %v", got)
	}
	if msgs := strings.Join(drainOutput(alice.Output), "\n"); !strings.Contains(msgs, "Teleported to spawn by op.") {
		t.Fatalf("alice was not told: %q", msgs)
	}
}

func TestSetSpawnMovesSpawn(t *testing.T) {
	f := newFixture(t, map[string][]string{"op": {perm.SetSpawn}})
	op := newTestPlayer(f.world, "op")
	if err := f.world.Teleport(op.ID, host.At("world", 7.2, 70, 3.9)); err != nil {
		t.Fatalf("place op: %v", err)
	}

	f.run(t, op, "setspawn")
	d, _ := f.world.Dimension("world")
	if got := d.Spawn(); got.X() != 7.5 || got.Y() != 70 || got.Z() != 3.5 {
		t.Fatalf("spawn = %v", got)
	}
}

func TestWhereReportsPosition(t *testing.T) {
	f := newFixture(t, map[string][]string{"alice": {perm.Where}})
	alice := newTestPlayer(f.world, "alice")

	out := strings.Join(f.run(t, alice, "where"), "\n")
	if !strings.Contains(out, "alice: 0.5, 64.0, 0.5 in world") {
		t.Fatalf("output = %q", out)
	}
	if out := f.runConsole("where alice"); !strings.Contains(out, "in world") {
		t.Fatalf("console where = %q", out)
	}
}
