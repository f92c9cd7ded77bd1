package preflight

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// ToolVersion runs "<resolved> <flag>" and returns the first non-empty output
// line. It returns "" when the tool cannot report a version within two
// seconds.
func ToolVersion(ctx context.Context, resolved, flag string) string {
	resolved = strings.TrimSpace(resolved)
	if resolved == "" {
		return ""
	}
	if flag == "" {
		flag = "--version"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, resolved, flag)
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		return ""
	}
	return firstLine(string(output))
}

// VersionFlag returns the flag a tool uses to print its version.
func VersionFlag(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ffmpeg", "ffprobe":
		return "-version"
	case "whisper.cpp", "whisper-cli":
		return "--help"
	default:
		return "--version"
	}
}

func firstLine(text string) string {
	for line := range strings.Lines(text) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
