package commands

import (
	"strings"
	"testing"
)

func TestHelpShowsAdministrationToAdmins(t *testing.T) {
	f := newFixture(t, nil)
	admin := newTestAdmin(f.world, "admin")

	text := strings.Join(f.run(t, admin, "help"), "\n")
	for _, section := range []string{"Commands:", "Teleporting:", "Homes and warps:", "Administration:"} {
		if !strings.Contains(text, section) {
			t.Fatalf("help output missing %s: %q", section, text)
		}
	}
	if !strings.Contains(text, "setspawn") {
		t.Fatalf("help output missing admin commands: %q", text)
	}
}

func TestHelpOmitsAdministrationForPlayers(t *testing.T) {
	f := newFixture(t, nil)
	player := newTestPlayer(f.world, "traveler")

	text := strings.Join(f.run(t, player, "help"), "\n")
	if strings.Contains(text, "Administration:") {
		t.Fatalf("unexpected admin section for regular player: %q", text)
	}
	if !strings.Contains(text, "Teleporting:") {
		t.Fatalf("help output missing teleport section: %q", text)
	}
}

func TestHelpForSingleCommand(t *testing.T) {
	f := newFixture(t, nil)
	player := newTestPlayer(f.world, "traveler")

	text := strings.Join(f.run(t, player, "help tpa"), "\n")
	if !strings.Contains(text, "call <player> - ask a player to bring you to them") || !strings.Contains(text, "Aliases: tpa") {
		t.Fatalf("help call = %q", text)
	}
	if text := strings.Join(f.run(t, player, "help zzzzzz"), "\n"); !strings.Contains(text, "No help for zzzzzz.") {
		t.Fatalf("help unknown = %q", text)
	}
}
