package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"

	"intohear/internal/deps"
	"intohear/internal/logging"
	"intohear/internal/procexec"
	"intohear/internal/services"
)

const (
	// DefaultBinary is the resampler looked up on PATH.
	DefaultBinary = "ffmpeg"

	// SampleRate is the output sample rate in Hz.
	SampleRate = 16000
	// Channels is the output channel count.
	Channels = 1
	// Codec is the output PCM codec.
	Codec = "pcm_s16le"

	stageName = "normalization"
)

// Converter runs ffmpeg to produce the normalized waveform.
type Converter struct {
	Binary  string
	Runner  procexec.Runner
	Locator deps.Locator
	Logger  *slog.Logger
	// Prober, when set and its binary resolves, confirms the output format.
	Prober *Prober
}

// NewConverter builds a Converter. An empty binary selects DefaultBinary.
func NewConverter(binary string, runner procexec.Runner, locator deps.Locator, logger *slog.Logger) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Converter{
		Binary:  binary,
		Runner:  runner,
		Locator: locator,
		Logger:  logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Args returns the ffmpeg argument list converting input into output. Any
// existing file at output is overwritten.
func Args(input, output string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-c:a", Codec,
		"-f", "wav",
		output,
	}
}

// Convert writes the normalized waveform for input to output. The input is
// never modified or removed. Failures carry the captured stderr verbatim.
func (c *Converter) Convert(ctx context.Context, input, output string) error {
	binary, ok := c.Locator.Lookup(c.Binary)
	if !ok {
		launch := services.Wrap(services.KindLaunch, stageName, "locate", c.Binary+" not found", nil).
			WithHint(deps.InstallHint(c.Binary, runtime.GOOS))
		return services.Wrap(services.KindNormalization, stageName, "locate", "resampler unavailable", launch).
			WithHint(launch.Hint)
	}
	if _, err := os.Stat(input); err != nil {
		return services.Wrap(services.KindNormalization, stageName, "stat input", input, err)
	}

	logger := logging.WithContext(ctx, c.Logger)
	logger.Info("normalizing audio",
		logging.String(logging.FieldEventType, "normalization_started"),
		logging.String("input_path", input),
	)

	result, err := c.Runner.Run(ctx, binary, Args(input, output)...)
	if err != nil {
		hint := ""
		if details, ok := services.Details(err); ok {
			hint = details.Hint
		}
		return services.Wrap(services.KindNormalization, stageName, "run", "ffmpeg did not run", err).
			WithStderr(result.Stderr).
			WithHint(hint)
	}
	if !result.Success() {
		return services.Wrap(services.KindNormalization, stageName, "run",
			fmt.Sprintf("ffmpeg exited with status %d", result.ExitCode), nil).
			WithStderr(result.Stderr).
			WithExitCode(result.ExitCode).
			WithHint("check that the input contains a decodable audio stream")
	}

	info, err := os.Stat(output)
	if err != nil {
		return services.Wrap(services.KindNormalization, stageName, "stat output", "ffmpeg produced no output", err).
			WithStderr(result.Stderr)
	}
	if info.Size() == 0 {
		return services.Wrap(services.KindNormalization, stageName, "stat output", "ffmpeg produced an empty file", nil).
			WithStderr(result.Stderr)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "normalization_completed"),
		logging.String("output_path", output),
		logging.String("size", humanize.Bytes(uint64(info.Size()))),
		logging.Duration("duration", result.Duration),
	}
	if c.Prober != nil && c.Locator.Available(c.Prober.Binary) {
		probe, err := c.Prober.Inspect(ctx, output)
		if err != nil {
			return services.Wrap(services.KindNormalization, stageName, "probe output", "ffprobe failed", err)
		}
		if err := CheckFormat(probe); err != nil {
			return services.Wrap(services.KindNormalization, stageName, "probe output", "unexpected output format", err)
		}
		attrs = append(attrs, logging.Duration("audio_length", probe.Duration()))
	}
	logger.Info("audio normalized", logging.Args(attrs...)...)
	return nil
}
