package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"intohear/internal/config"
	"intohear/internal/deps"
	"intohear/internal/models"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelCache reports whether the configured model artifact is cached.
// A missing artifact passes because the first run downloads it; a corrupt
// one fails.
func CheckModelCache(cfg *config.Config) Result {
	const name = "Model cache"

	sel := models.Parse(cfg.Transcription.Model)
	store := models.NewStore(cfg.Paths.ModelDir, cfg.Transcription.ModelBaseURL, nil)
	path := store.Path(sel)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s not cached (downloaded on first use)", sel.Artifact().FileName())}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if err := models.Verify(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size())))
	if sel.Aliased() {
		detail += fmt.Sprintf("; %q uses the %s artifact", sel.String(), sel.Artifact().String())
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckHFToken verifies a Hugging Face token is present for pyannote VAD.
func CheckHFToken(token string) Result {
	const name = "Hugging Face token"
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing (set HF_TOKEN or whisperx.hf_token)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckModelHost verifies the model base URL answers. Any response below 500
// counts as reachable since the root of a file host rarely serves 200.
func CheckModelHost(ctx context.Context, baseURL string) Result {
	const name = "Model host"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base+"/"+models.Medium.FileName(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckSystemDeps evaluates the external tools the configured engine needs.
// Both doctor and the pipeline commands use this so the requirements list
// lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Tools.YTDLP,
			Description: "Required for URL sources",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for audio normalization",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Verifies normalized audio format",
			Optional:    true,
		},
	}
	switch cfg.Transcription.Engine {
	case config.EngineWhisperX:
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     cfg.Tools.UVX,
			Description: "Required for WhisperX-driven transcription",
		})
	default:
		requirements = append(requirements, deps.Requirement{
			Name:        "whisper.cpp",
			Command:     cfg.Tools.WhisperCPP,
			Description: "Required for transcription",
		})
	}
	return deps.CheckBinaries(deps.NewLocator(cfg.Tools.PathExtensions), runtime.GOOS, requirements)
}

// MissingRequired returns the required tools that were not found.
func MissingRequired(statuses []deps.Status) []deps.Status {
	var missing []deps.Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
