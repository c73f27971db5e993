package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/bnema/buildctl/internal/addons"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
}

func TestRegistryForIsMemoized(t *testing.T) {
	r := NewRegistry(RegistryConfig{AddonsDir: t.TempDir()})

	duke := r.For(addons.GameDuke3D)
	if duke != r.For(addons.GameDuke3D) {
		t.Fatal("expected the same cache for the same game")
	}
	if duke == r.For(addons.GameBlood) {
		t.Fatal("expected distinct caches per game")
	}
	if duke.Game() != addons.GameDuke3D {
		t.Errorf("unexpected game %s", duke.Game())
	}
}

func TestRegistryArchivesEndToEnd(t *testing.T) {
	root := t.TempDir()
	settings := newMemSettings()
	r := NewRegistry(RegistryConfig{AddonsDir: root, Store: settings})

	layout := r.Layout(addons.GameDuke3D)
	if err := layout.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	mods := layout.Dir(addons.KindMod)

	writeZip(t, filepath.Join(mods, "mod-a.zip"), map[string]string{
		"addon.json": `{"id":"a","type":"mod","game":{"name":"duke3d"},"title":"A","version":"0.5"}`,
	})
	writeZip(t, filepath.Join(mods, "mod-b.zip"), map[string]string{
		"addon.json": `{"id":"b","type":"mod","game":{"name":"duke3d"},"title":"B","version":"1.0",
			"dependencies":{"addons":[{"id":"a","version":">=1.0"}]}}`,
	})

	cache := r.For(addons.GameDuke3D)
	results, err := cache.RescanAll(true)
	if err != nil {
		t.Fatalf("RescanAll() error: %v", err)
	}
	if len(results) != len(addons.Kinds) {
		t.Fatalf("expected one result per kind, got %d", len(results))
	}

	snap := cache.Get(addons.KindMod)
	if snap.Len() != 2 {
		t.Fatalf("expected 2 mods, got %d", snap.Len())
	}
	for _, m := range snap.All() {
		if !m.Enabled {
			t.Errorf("expected %s enabled after first scan", m.Identity)
		}
	}

	a := addons.Identity{ID: "a", Version: "0.5"}
	b := addons.Identity{ID: "b", Version: "1.0"}

	if err := cache.Disable(a); err != nil {
		t.Fatal(err)
	}
	if got, _ := cache.Get(addons.KindMod).Get(b); got.Enabled {
		t.Fatal("disabling a should disable its dependent b")
	}

	if err := cache.Enable(b); err != nil {
		t.Fatal(err)
	}
	if got, _ := cache.Get(addons.KindMod).Get(a); !got.Enabled {
		t.Fatal("enabling b should enable a even though 0.5 is below >=1.0")
	}

	report, err := cache.CheckDependencies(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Unsatisfied) != 1 || report.Unsatisfied[0].ID != "a" || report.Unsatisfied[0].Installed[0] != "0.5" {
		t.Errorf("expected unsatisfied a >=1.0, got %+v", report.Unsatisfied)
	}

	// Archives without sound resources stay packed
	if _, err := os.Stat(filepath.Join(mods, "mod-a.zip")); err != nil {
		t.Errorf("archive should not be unpacked: %v", err)
	}
}

func TestManifestAtKindDirRootIsRejected(t *testing.T) {
	r := NewRegistry(RegistryConfig{AddonsDir: t.TempDir(), Store: newMemSettings()})
	layout := r.Layout(addons.GameDuke3D)
	if err := layout.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	mods := layout.Dir(addons.KindMod)

	loose := filepath.Join(mods, "addon.json")
	if err := os.WriteFile(loose, []byte(`{"id":"loose","type":"mod","game":{"name":"duke3d"},"title":"Loose","version":"1.0"}`), 0644); err != nil {
		t.Fatal(err)
	}
	otherDir := filepath.Join(mods, "other")
	if err := os.MkdirAll(otherDir, 0755); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(otherDir, "addon.json")
	if err := os.WriteFile(other, []byte(`{"id":"other","type":"mod","game":{"name":"duke3d"},"title":"Other","version":"1.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cache := r.For(addons.GameDuke3D)
	result, err := cache.Rescan(true, addons.KindMod)
	if err != nil {
		t.Fatalf("Rescan() error: %v", err)
	}
	if len(result.Errors) != 1 || !errors.Is(result.Errors[0], ErrLooseManifest) {
		t.Fatalf("expected one ErrLooseManifest, got %v", result.Errors)
	}

	snap := cache.Get(addons.KindMod)
	if snap.Len() != 1 {
		t.Fatalf("expected only the foldered mod, got %d entries", snap.Len())
	}
	got, ok := snap.Get(addons.Identity{ID: "other", Version: "1.0"})
	if !ok {
		t.Fatal("expected other@1.0 in the catalog")
	}
	if got.Path != otherDir {
		t.Errorf("expected backing path %s, got %s", otherDir, got.Path)
	}

	if _, err := cache.Add(loose); !errors.Is(err, ErrLooseManifest) {
		t.Errorf("Add() expected ErrLooseManifest, got %v", err)
	}

	err = cache.Delete(addons.KindMod, addons.Identity{ID: "loose", Version: "1.0"}, false)
	if !errors.Is(err, ErrAddonNotFound) {
		t.Errorf("Delete() expected ErrAddonNotFound, got %v", err)
	}
	for _, p := range []string{loose, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to be kept: %v", p, err)
		}
	}
}
