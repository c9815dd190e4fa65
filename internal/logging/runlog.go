package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// runLogPattern matches the per-run files written by the server.
const runLogPattern = "emindy-*.log"

// RunLogPath returns the log file for a server run started at started.
func RunLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, "emindy-"+started.UTC().Format("20060102T150405.000Z")+".log")
}

// LinkCurrent points <dir>/emindy.log at target, falling back to a hard link
// where symlinks are unavailable.
func LinkCurrent(dir, target string) error {
	if dir == "" || target == "" {
		return nil
	}
	current := filepath.Join(dir, LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

// PruneRunLogs removes run logs in dir last modified more than retentionDays
// ago, never touching keep. It returns how many files were removed. A
// retentionDays of 0 keeps everything.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep = filepath.Clean(keep)

	removed := 0
	for _, path := range matches {
		if filepath.Clean(path) == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "failed to prune old server log", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "old log file remains on disk"))
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("pruned old server logs",
			Int("removed", removed),
			String(FieldEventType, "log_pruned"))
	}
	return removed
}
