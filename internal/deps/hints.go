package deps

import (
	"fmt"
	"path/filepath"
	"strings"
)

type hintSet struct {
	windows string
	darwin  string
	linux   string
	generic string
}

var installHints = map[string]hintSet{
	"yt-dlp": {
		windows: "install yt-dlp with `winget install yt-dlp` or download yt-dlp.exe from github.com/yt-dlp/yt-dlp and add it to PATH",
		darwin:  "install yt-dlp with `brew install yt-dlp`",
		linux:   "install yt-dlp with your package manager or `pipx install yt-dlp`",
		generic: "install yt-dlp from github.com/yt-dlp/yt-dlp and add it to PATH",
	},
	"ffmpeg": {
		windows: "install FFmpeg with `winget install ffmpeg` and reopen the terminal",
		darwin:  "install FFmpeg with `brew install ffmpeg`",
		linux:   "install FFmpeg with your package manager (e.g. `apt install ffmpeg`)",
		generic: "install FFmpeg from ffmpeg.org and add it to PATH",
	},
	"whisper-cli": {
		darwin:  "install whisper.cpp with `brew install whisper-cpp`",
		generic: "build whisper.cpp (github.com/ggml-org/whisper.cpp) and put whisper-cli on PATH or set [tools] whisper_cpp",
	},
	"uvx": {
		windows: "install uv with `winget install astral-sh.uv`",
		generic: "install uv (docs.astral.sh/uv) so uvx can launch WhisperX",
	},
}

// InstallHint returns platform-specific remediation text for a missing tool.
func InstallHint(tool, goos string) string {
	base := strings.ToLower(filepath.Base(strings.TrimSpace(tool)))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	hints, ok := installHints[base]
	if !ok {
		return fmt.Sprintf("install %s and make sure it is on PATH", tool)
	}
	var hint string
	switch goos {
	case "windows":
		hint = hints.windows
	case "darwin":
		hint = hints.darwin
	case "linux":
		hint = hints.linux
	}
	if hint == "" {
		hint = hints.generic
	}
	return hint
}
