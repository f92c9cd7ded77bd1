package acquire

import (
	"net/url"
	"os"
	"strings"
)

// ResolveLocal reports whether source names an existing regular file and
// returns its path. file:// URLs are accepted. Remote locators and missing
// paths return false and go through the download tool.
func ResolveLocal(source string) (string, bool) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", false
	}
	candidate := source
	if strings.HasPrefix(strings.ToLower(source), "file://") {
		parsed, err := url.Parse(source)
		if err != nil || parsed.Path == "" {
			return "", false
		}
		candidate = parsed.Path
	} else if IsRemote(source) {
		return "", false
	}
	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return candidate, true
}

// IsRemote reports whether source carries a network URL scheme.
func IsRemote(source string) bool {
	parsed, err := url.Parse(strings.TrimSpace(source))
	if err != nil || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "ftp", "ftps":
		return true
	}
	return false
}
