package addons

import (
	"fmt"
	"os"
	"sync"
	"testing"
)

func TestStateStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()

	s := NewStateStore(dir)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}

	hrp := Identity{ID: "HRP", Version: "5.4"}
	if err := s.Persist(GameDuke3D, hrp, false); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := s.SetFavorite(GameDuke3D, "Roch.map", true); err != nil {
		t.Fatalf("SetFavorite() error: %v", err)
	}

	reloaded := NewStateStore(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	disabled := reloaded.DisabledMods(GameDuke3D)
	if !disabled["hrp@5.4"] {
		t.Fatalf("expected hrp@5.4 to be disabled, got %v", disabled)
	}
	if len(reloaded.DisabledMods(GameBlood)) != 0 {
		t.Error("state leaked across games")
	}
	if !reloaded.IsFavorite(GameDuke3D, "roch.map") {
		t.Error("expected favorite to survive reload")
	}

	if err := reloaded.Persist(GameDuke3D, hrp, true); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if reloaded.DisabledMods(GameDuke3D)["hrp@5.4"] {
		t.Error("expected enable to clear the disabled entry")
	}
}

func TestStateStoreForget(t *testing.T) {
	s := NewStateStore(t.TempDir())
	id := Identity{ID: "a"}

	if err := s.Persist(GameWang, id, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Forget(GameWang, id); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if len(s.DisabledMods(GameWang)) != 0 {
		t.Error("expected identity to be forgotten")
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("expected state file on disk: %v", err)
	}
}

func TestStateStoreLoadRejectsGarbage(t *testing.T) {
	s := NewStateStore(t.TempDir())
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestStateStoreConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	s := NewStateStore(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- s.Persist(GameDuke3D, Identity{ID: fmt.Sprintf("mod%d", i)}, false)
		}(i)
		go func() {
			defer wg.Done()
			errs <- s.Save()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save failed: %v", err)
		}
	}

	reloaded := NewStateStore(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := len(reloaded.DisabledMods(GameDuke3D)); got != 20 {
		t.Errorf("expected 20 disabled mods after reload, got %d", got)
	}
}
