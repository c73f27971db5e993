package addons

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bnema/buildctl/internal/logger"
)

const (
	// MaxBackupsPerAddon is the maximum number of backups to keep per addon
	MaxBackupsPerAddon = 3
	// BackupTimestampFormat is the format used for backup directory names
	BackupTimestampFormat = "20060102-150405"
)

// BackupManager keeps timestamped copies of addon packages before removal
type BackupManager struct {
	backupDir string
}

// NewBackupManager creates a new backup manager
func NewBackupManager(dataDir string) *BackupManager {
	return &BackupManager{
		backupDir: filepath.Join(dataDir, "backups"),
	}
}

// Dir returns the root backup directory
func (bm *BackupManager) Dir() string {
	return bm.backupDir
}

// CreateBackup copies an addon package (archive, loose file or folder) to
// <backups>/<game>/<identity>/<timestamp>/ and returns that folder.
func (bm *BackupManager) CreateBackup(a *Addon) (string, error) {
	addonBackupDir := bm.addonDir(a)
	if err := os.MkdirAll(addonBackupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format(BackupTimestampFormat)
	backupPath := filepath.Join(addonBackupDir, timestamp)
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	info, err := os.Stat(a.Path)
	if err != nil {
		_ = os.RemoveAll(backupPath)
		return "", fmt.Errorf("failed to backup addon: %w", err)
	}

	dest := filepath.Join(backupPath, filepath.Base(a.Path))
	if info.IsDir() {
		err = copyDir(a.Path, dest)
	} else {
		err = copyFile(a.Path, dest)
	}
	if err != nil {
		_ = os.RemoveAll(backupPath)
		return "", fmt.Errorf("failed to backup addon: %w", err)
	}

	if err := bm.cleanupOldBackups(a); err != nil {
		logger.Warn("Failed to cleanup old backups", "addon", a.ID, "error", err)
	}

	return backupPath, nil
}

// ListBackups lists the backup timestamps of an addon, newest first
func (bm *BackupManager) ListBackups(a *Addon) ([]string, error) {
	entries, err := os.ReadDir(bm.addonDir(a))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			backups = append(backups, entry.Name())
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// RestoreBackup copies a backup back into destDir, returning the restored path
func (bm *BackupManager) RestoreBackup(a *Addon, timestamp, destDir string) (string, error) {
	backupPath := filepath.Join(bm.addonDir(a), timestamp)

	entries, err := os.ReadDir(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("backup not found: %s", timestamp)
		}
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("backup %s is empty or ambiguous", timestamp)
	}

	src := filepath.Join(backupPath, entries[0].Name())
	dest := filepath.Join(destDir, entries[0].Name())
	if _, err := os.Stat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return "", fmt.Errorf("failed to remove existing addon: %w", err)
		}
	}

	if entries[0].IsDir() {
		err = copyDir(src, dest)
	} else {
		err = copyFile(src, dest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to restore backup: %w", err)
	}
	return dest, nil
}

func (bm *BackupManager) addonDir(a *Addon) string {
	return filepath.Join(bm.backupDir, string(a.Game.Game), sanitizeName(a.Key().String()))
}

// cleanupOldBackups removes old backups exceeding MaxBackupsPerAddon
func (bm *BackupManager) cleanupOldBackups(a *Addon) error {
	backups, err := bm.ListBackups(a)
	if err != nil {
		return err
	}

	if len(backups) <= MaxBackupsPerAddon {
		return nil
	}

	for _, backup := range backups[MaxBackupsPerAddon:] {
		if err := os.RemoveAll(filepath.Join(bm.addonDir(a), backup)); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}

// copyDir recursively copies a directory
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

// copyFile copies a single file
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	return dstFile.Close()
}

// CopyPackage copies an addon package file or folder into dir and returns
// the new path. An existing entry with the same name is replaced. When src
// already lives in dir nothing is copied and copied is false.
func CopyPackage(src, dir string) (dest string, copied bool, err error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, err
	}

	dest = filepath.Join(dir, filepath.Base(src))
	if abs, _ := filepath.Abs(src); abs != "" {
		if absDest, _ := filepath.Abs(dest); absDest == abs {
			return dest, false, nil
		}
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", false, err
	}

	if info.IsDir() {
		err = copyDir(src, dest)
	} else {
		err = copyFile(src, dest)
	}
	if err != nil {
		_ = os.RemoveAll(dest)
		return "", false, err
	}
	return dest, true, nil
}
