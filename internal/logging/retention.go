package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs removes rotated log files in dir older than retentionDays. The
// active log file is never removed. A retentionDays value of 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LogFileName {
			continue
		}
		if matched, _ := filepath.Match("intohear*.log*", name); !matched {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		fullPath := filepath.Join(dir, name)
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", fullPath), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

// RotateLog renames an oversized active log file so the next run starts fresh.
func RotateLog(dir string, maxBytes int64, now time.Time) (string, error) {
	if dir == "" || maxBytes <= 0 {
		return "", nil
	}
	active := filepath.Join(dir, LogFileName)
	info, err := os.Stat(active)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	if info.Size() < maxBytes {
		return "", nil
	}
	rotated := filepath.Join(dir, "intohear-"+now.UTC().Format("20060102T150405")+".log")
	if err := os.Rename(active, rotated); err != nil {
		return "", err
	}
	return rotated, nil
}
