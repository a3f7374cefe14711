package places

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"commandbook/internal/host"
)

func TestCreateRejectsInvalidNames(t *testing.T) {
	store := NewStore("warp", false, nil, nil)
	for _, name := range []string{"", "has space", "semi;colon", "dots.bad"} {
		if _, err := store.Create(name, host.At("world", 0, 64, 0), uuid.Nil, ""); err != ErrInvalidName {
			t.Fatalf("Create(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := store.Create("Shop_1-a", host.At("world", 0, 64, 0), uuid.Nil, ""); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	store := NewStore("warp", false, nil, nil)
	owner := uuid.New()
	if _, err := store.Create("Market", host.At("world", 10, 64, 10), owner, "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, ok := store.Get("other_world", "market")
	if !ok {
		t.Fatalf("expected shared namespace lookup to succeed")
	}
	if p.Name != "Market" || p.OwnerID != owner {
		t.Fatalf("unexpected place %+v", p)
	}
}

func TestPerWorldNamespaces(t *testing.T) {
	store := NewStore("home", true, nil, nil)
	store.Create("alice", host.At("world", 1, 64, 1), uuid.Nil, "alice")
	store.Create("alice", host.At("world_nether", 2, 40, 2), uuid.Nil, "alice")

	p, ok := store.Get("world_nether", "alice")
	if !ok || p.Location.World != "world_nether" {
		t.Fatalf("got %+v %v, want nether home", p, ok)
	}
	if _, ok := store.Get("world_the_end", "alice"); ok {
		t.Fatalf("expected no home in the end")
	}
	if !store.Remove("world", "ALICE") {
		t.Fatalf("expected remove to succeed")
	}
	if _, ok := store.Get("world", "alice"); ok {
		t.Fatalf("home should be gone")
	}
	if _, ok := store.Get("world_nether", "alice"); !ok {
		t.Fatalf("other world's home must survive")
	}
}

func TestPendingWorldsMigrate(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "places.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()

	writer := NewStore("warp", false, backend, nil)
	writer.Create("castle", host.At("skylands", 5, 90, 5), uuid.Nil, "")
	writer.Create("spawnhub", host.At("world", 0, 64, 0), uuid.Nil, "")

	loaded := map[string]bool{"world": true}
	reader := NewStore("warp", false, backend, nil)
	if err := reader.Load(func(w string) bool { return loaded[w] }); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := reader.Get("", "castle"); ok {
		t.Fatalf("place in an unloaded world should be pending")
	}
	if reader.Pending() != 1 {
		t.Fatalf("got %d pending, want 1", reader.Pending())
	}

	loaded["skylands"] = true
	reader.UpdateWorlds(func(w string) bool { return loaded[w] })
	p, ok := reader.Get("", "castle")
	if !ok || p.Location.Y() != 90 {
		t.Fatalf("got %+v %v, want castle at y=90", p, ok)
	}
	if reader.Pending() != 0 {
		t.Fatalf("got %d pending, want 0", reader.Pending())
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.db")
	backend, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	owner := uuid.New()
	store := NewStore("home", true, backend, nil)
	store.Create("bob", host.At("world", 1.5, 64, -3.5).WithRotation(15, 180), owner, "bob")
	store.Create("bob", host.At("world", 2.5, 65, -4.5), owner, "bob")
	store.Create("gone", host.At("world", 0, 0, 0), owner, "bob")
	store.Remove("world", "gone")
	backend.Close()

	backend, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer backend.Close()
	reloaded := NewStore("home", true, backend, nil)
	if err := reloaded.Load(nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	list := reloaded.List("world")
	if len(list) != 1 {
		t.Fatalf("got %d homes, want 1", len(list))
	}
	if list[0].Location.X() != 2.5 || list[0].OwnerID != owner {
		t.Fatalf("unexpected home %+v", list[0])
	}
	if got := reloaded.Owned("world", owner); len(got) != 1 {
		t.Fatalf("got %d owned homes, want 1", len(got))
	}
}
