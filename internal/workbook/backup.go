package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupStampLayout = "20060102_150405"

// BackupPath returns the backup name for path at t:
// <name>_backup_YYYYMMDD_HHMMSS<ext>.
func BackupPath(path string, t time.Time) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + "_backup_" + t.Format(backupStampLayout) + ext
}

// Backup copies the workbook next to itself and returns the copy's path.
func Backup(path string, now time.Time) (string, error) {
	dst := BackupPath(path, now)

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()

		return "", fmt.Errorf("copy backup: %w", err)
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}

	return dst, nil
}

// Backups lists existing backups of path, oldest first.
func Backups(path string) ([]string, error) {
	ext := filepath.Ext(path)
	prefix := strings.TrimSuffix(filepath.Base(path), ext) + "_backup_"

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var out []string

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ext {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		if _, err := time.Parse(backupStampLayout, stamp); err != nil {
			continue
		}

		out = append(out, filepath.Join(filepath.Dir(path), name))
	}

	// The stamp layout sorts lexically in time order.
	sort.Strings(out)

	return out, nil
}

// Rotate deletes all but the newest keep backups of path and returns the
// removed files. The newest backup is always kept.
func Rotate(path string, keep int) ([]string, error) {
	keep = max(keep, 1)

	backups, err := Backups(path)
	if err != nil {
		return nil, err
	}

	if len(backups) <= keep {
		return nil, nil
	}

	stale := backups[:len(backups)-keep]

	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("remove backup: %w", err)
		}
	}

	return stale, nil
}
