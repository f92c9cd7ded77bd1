package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultExtensions returns the executable extensions tried for goos when
// PATHEXT is unset. Platforms without an extension convention return nil.
func DefaultExtensions(goos string) []string {
	if goos != "windows" {
		return nil
	}
	if pathext := strings.TrimSpace(os.Getenv("PATHEXT")); pathext != "" {
		return splitExtensions(pathext)
	}
	return []string{".com", ".exe", ".bat", ".cmd"}
}

func splitExtensions(raw string) []string {
	parts := strings.Split(raw, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}

// Locator resolves tool names against an executable search path.
type Locator struct {
	// PathEnv is the search path. Empty means the current PATH.
	PathEnv string
	// Extensions are appended to bare names in order. On platforms where
	// extensions decide executability, a file is only invocable when its
	// extension is listed here.
	Extensions []string

	goos string
}

// NewLocator builds a Locator for the running platform. A non-empty extensions
// list replaces the platform default.
func NewLocator(extensions []string) Locator {
	if len(extensions) == 0 {
		extensions = DefaultExtensions(runtime.GOOS)
	}
	return Locator{Extensions: append([]string(nil), extensions...), goos: runtime.GOOS}
}

// Lookup returns the resolved path of name. Names that contain a path
// separator are checked directly without consulting the search path.
func (l Locator) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return l.probe(name)
	}
	pathEnv := l.PathEnv
	if pathEnv == "" {
		pathEnv = os.Getenv("PATH")
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		if resolved, ok := l.probe(filepath.Join(dir, name)); ok {
			return resolved, true
		}
	}
	return "", false
}

// Available reports whether name resolves to an invocable file.
func (l Locator) Available(name string) bool {
	_, ok := l.Lookup(name)
	return ok
}

func (l Locator) probe(candidate string) (string, bool) {
	if l.invocable(candidate) {
		return candidate, true
	}
	if filepath.Ext(candidate) != "" && hasExtension(candidate, l.Extensions) {
		return "", false
	}
	for _, ext := range l.Extensions {
		if path := candidate + ext; l.invocable(path) {
			return path, true
		}
	}
	return "", false
}

func (l Locator) platform() string {
	if l.goos != "" {
		return l.goos
	}
	return runtime.GOOS
}

// invocable reports whether path is a file the platform would execute. On
// Windows that is decided by extension alone, so an extensionless script
// such as a bare yt-dlp never counts.
func (l Locator) invocable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if goos := l.platform(); goos == "windows" {
		exts := l.Extensions
		if len(exts) == 0 {
			exts = DefaultExtensions(goos)
		}
		return hasExtension(path, exts)
	}
	return info.Mode().Perm()&0o111 != 0
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, candidate := range extensions {
		if strings.ToLower(candidate) == ext {
			return true
		}
	}
	return false
}
