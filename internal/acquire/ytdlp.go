package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"intohear/internal/deps"
	"intohear/internal/logging"
	"intohear/internal/procexec"
	"intohear/internal/services"
)

const (
	// DefaultBinary is the download tool looked up on PATH.
	DefaultBinary = "yt-dlp"

	stageName = "acquisition"
)

// leftoverSuffixes mark yt-dlp working files that are never the final output.
var leftoverSuffixes = []string{".part", ".ytdl", ".tmp", ".temp"}

// Downloader runs yt-dlp for one source reference at a time.
type Downloader struct {
	Binary  string
	Runner  procexec.Runner
	Locator deps.Locator
	Logger  *slog.Logger
}

// NewDownloader builds a Downloader. An empty binary selects DefaultBinary.
func NewDownloader(binary string, runner procexec.Runner, locator deps.Locator, logger *slog.Logger) *Downloader {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Downloader{
		Binary:  binary,
		Runner:  runner,
		Locator: locator,
		Logger:  logging.NewComponentLogger(logger, "yt-dlp"),
	}
}

// Args returns the yt-dlp argument list for source. The output template keeps
// tempBase and lets the tool choose the extension. Playlist expansion is
// disabled so one source always yields one file.
func Args(source, tempBase string) []string {
	return []string{
		"-f", "bestaudio",
		"--no-playlist",
		"--no-progress",
		"-o", tempBase + ".%(ext)s",
		"--", source,
	}
}

// Fetch downloads source to a file named tempBase.<ext> and returns its path.
func (d *Downloader) Fetch(ctx context.Context, source, tempBase string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", services.Wrap(services.KindAcquisition, stageName, "validate", "empty source reference", nil)
	}
	binary, ok := d.Locator.Lookup(d.Binary)
	if !ok {
		launch := services.Wrap(services.KindLaunch, stageName, "locate", d.Binary+" not found", nil).
			WithHint(deps.InstallHint(d.Binary, runtime.GOOS))
		return "", services.Wrap(services.KindAcquisition, stageName, "locate", "download tool unavailable", launch).
			WithHint(launch.Hint)
	}

	logger := logging.WithContext(ctx, d.Logger)
	logger.Info("downloading audio",
		logging.String(logging.FieldEventType, "acquisition_started"),
		logging.String("binary", binary),
	)

	result, err := d.Runner.Run(ctx, binary, Args(source, tempBase)...)
	if err != nil {
		hint := ""
		if details, ok := services.Details(err); ok {
			hint = details.Hint
		}
		return "", services.Wrap(services.KindAcquisition, stageName, "run", "yt-dlp did not run", err).
			WithStderr(result.Stderr).
			WithHint(hint)
	}
	if !result.Success() {
		return "", services.Wrap(services.KindAcquisition, stageName, "run",
			fmt.Sprintf("yt-dlp exited with status %d", result.ExitCode), nil).
			WithStderr(result.Stderr).
			WithExitCode(result.ExitCode).
			WithHint("check that the source is reachable and supported; updating yt-dlp fixes most extractor failures")
	}

	path, err := Locate(tempBase)
	if err != nil {
		return "", services.Wrap(services.KindAcquisition, stageName, "locate output", "no downloaded file found", err).
			WithStderr(result.Stderr)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "acquisition_completed"),
		logging.String("path", path),
		logging.Duration("duration", result.Duration),
	}
	if info, statErr := os.Stat(path); statErr == nil {
		attrs = append(attrs, logging.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	logger.Info("audio downloaded", logging.Args(attrs...)...)
	return path, nil
}

// Locate returns the file produced for tempBase. yt-dlp working files are
// ignored. When several candidates exist the lexically first one wins.
func Locate(tempBase string) (string, error) {
	candidates, err := Matches(tempBase)
	if err != nil {
		return "", err
	}
	outputs := candidates[:0]
	for _, candidate := range candidates {
		if isLeftover(candidate) {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		outputs = append(outputs, candidate)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("no file matching %s.*", filepath.Base(tempBase))
	}
	return outputs[0], nil
}

// Matches lists every directory entry that starts with tempBase followed by
// a dot, including yt-dlp working files. The result is sorted.
func Matches(tempBase string) ([]string, error) {
	dir := filepath.Dir(tempBase)
	prefix := filepath.Base(tempBase) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		matches = append(matches, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(matches)
	return matches, nil
}

func isLeftover(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range leftoverSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
