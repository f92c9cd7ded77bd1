package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Artifacts owns the temporary files of one run. Every path handed out by
// Path shares a run-unique prefix, and Cleanup removes everything under that
// prefix, including tool leftovers the run never named explicitly.
type Artifacts struct {
	dir    string
	prefix string

	mu      sync.Mutex
	tracked []string
}

// NewArtifacts creates dir when missing and returns a scope whose files are
// named intohear-<runID>-*.
func NewArtifacts(dir, runID string) (*Artifacts, error) {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("artifacts: empty run id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: ensure temp dir: %w", err)
	}
	return &Artifacts{dir: dir, prefix: "intohear-" + runID}, nil
}

// Base returns the shared path prefix of the scope.
func (a *Artifacts) Base() string {
	return filepath.Join(a.dir, a.prefix)
}

// Path returns the scoped path for name and tracks it for cleanup.
func (a *Artifacts) Path(name string) string {
	path := a.Base() + "-" + name
	a.Track(path)
	return path
}

// Track registers an additional path for cleanup. Paths outside the scope
// directory are accepted; the caller must own them.
func (a *Artifacts) Track(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tracked = append(a.tracked, path)
}

// Existing lists scope files currently on disk, tracked or matched by prefix.
func (a *Artifacts) Existing() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.existingLocked()
}

func (a *Artifacts) existingLocked() []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		if _, err := os.Lstat(path); err != nil {
			return
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	for _, path := range a.tracked {
		add(path)
	}
	if entries, err := os.ReadDir(a.dir); err == nil {
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), a.prefix) {
				add(filepath.Join(a.dir, entry.Name()))
			}
		}
	}
	return paths
}

// Cleanup removes every file and directory in the scope. It is safe to call
// more than once; failures are joined and returned.
func (a *Artifacts) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, path := range a.existingLocked() {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
