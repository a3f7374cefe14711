package commands

import (
	"strings"
	"testing"

	"commandbook/internal/perm"
)

func TestWhoCommandListsOthersInLoginOrder(t *testing.T) {
	f := newFixture(t, map[string][]string{"hero": {perm.Who}})
	hero := newTestPlayer(f.world, "hero")
	newTestPlayer(f.world, "watcher")
	newTestPlayer(f.world, "scout")

	output := strings.Join(f.run(t, hero, "who"), "\n")
	want := "Other players online: watcher, scout"
	if !strings.Contains(output, want) {
		t.Fatalf("who output = %q, want substring %q", output, want)
	}
}

func TestWhoCommandHandlesNoOtherPlayers(t *testing.T) {
	f := newFixture(t, map[string][]string{"solo": {perm.Who}})
	hero := newTestPlayer(f.world, "solo")

	output := strings.Join(f.run(t, hero, "who"), "\n")
	want := "You are the only player online."
	if !strings.Contains(output, want) {
		t.Fatalf("who output = %q, want substring %q", output, want)
	}
}

func TestWhoNeedsPermission(t *testing.T) {
	f := newFixture(t, nil)
	hero := newTestPlayer(f.world, "hero")

	if output := strings.Join(f.run(t, hero, "who"), "\n"); !strings.Contains(output, "You don't have permission.") {
		t.Fatalf("who output = %q", output)
	}
}
