package addons

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBackupAndRestoreFolder(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "mods", "hrp")
	if err := os.MkdirAll(filepath.Join(src, "textures"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "textures", "a.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	bm := NewBackupManager(filepath.Join(root, "data"))
	a := &Addon{Identity: Identity{ID: "hrp", Version: "5.4"}, Game: SupportedGame{Game: GameDuke3D}, Path: src}

	backupPath, err := bm.CreateBackup(a)
	if err != nil {
		t.Fatalf("CreateBackup() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(backupPath, "hrp", "textures", "a.png")); err != nil {
		t.Fatalf("backup content missing: %v", err)
	}

	if err := os.RemoveAll(src); err != nil {
		t.Fatal(err)
	}

	backups, err := bm.ListBackups(a)
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %v (%v)", backups, err)
	}

	restored, err := bm.RestoreBackup(a, backups[0], filepath.Join(root, "mods"))
	if err != nil {
		t.Fatalf("RestoreBackup() error: %v", err)
	}
	if restored != src {
		t.Errorf("expected restore to %s, got %s", src, restored)
	}
	if _, err := os.Stat(filepath.Join(src, "textures", "a.png")); err != nil {
		t.Fatalf("restored content missing: %v", err)
	}
}

func TestBackupFileAndCleanup(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "roch.map")
	if err := os.WriteFile(src, []byte("map"), 0644); err != nil {
		t.Fatal(err)
	}

	bm := NewBackupManager(root)
	a := &Addon{Identity: Identity{ID: "roch.map"}, Game: SupportedGame{Game: GameDuke3D}, Path: src}

	// Pre-seed old backups so cleanup has something to prune
	for i := 0; i < MaxBackupsPerAddon+2; i++ {
		old := filepath.Join(bm.addonDir(a), fmt.Sprintf("20000101-00000%d", i))
		if err := os.MkdirAll(old, 0755); err != nil {
			t.Fatal(err)
		}
	}

	backupPath, err := bm.CreateBackup(a)
	if err != nil {
		t.Fatalf("CreateBackup() error: %v", err)
	}
	if data, err := os.ReadFile(filepath.Join(backupPath, "roch.map")); err != nil || string(data) != "map" {
		t.Fatalf("unexpected backup content %q (%v)", data, err)
	}

	backups, err := bm.ListBackups(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != MaxBackupsPerAddon {
		t.Fatalf("expected %d backups after cleanup, got %d", MaxBackupsPerAddon, len(backups))
	}
	if backups[0] != filepath.Base(backupPath) {
		t.Errorf("newest backup should be kept first, got %v", backups)
	}
}

func TestCopyPackage(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in", "mod.zip")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, copied, err := CopyPackage(src, filepath.Join(root, "mods"))
	if err != nil {
		t.Fatalf("CopyPackage() error: %v", err)
	}
	if !copied {
		t.Error("expected a copy into the mods dir")
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "zip" {
		t.Fatalf("unexpected copy %q (%v)", data, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("source must be left in place")
	}
}

func TestCopyPackageInPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mod.zip")
	if err := os.WriteFile(src, []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, copied, err := CopyPackage(src, dir)
	if err != nil {
		t.Fatalf("CopyPackage() error: %v", err)
	}
	if copied {
		t.Error("a package already in place must not be reported as copied")
	}
	if dest != src {
		t.Errorf("expected dest %s, got %s", src, dest)
	}
	if data, err := os.ReadFile(src); err != nil || string(data) != "zip" {
		t.Fatalf("source must be untouched, got %q (%v)", data, err)
	}
}
