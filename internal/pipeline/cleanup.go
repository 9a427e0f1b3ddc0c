package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"
)

// RemoveByExtension deletes every file in dir carrying the given extension.
// Staged files never outlive the stage that consumes them. Removal failures
// are logged and skipped; the next run's staging pass overwrites leftovers.
func RemoveByExtension(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Failed to read staging directory for cleanup.", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove staged file.", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Cleaned up staged files.", "extension", ext, "removed", removed)
	}
	return removed
}
