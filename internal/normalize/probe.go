package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"intohear/internal/procexec"
)

// DefaultProbeBinary is the inspector looked up on PATH.
const DefaultProbeBinary = "ffprobe"

// ProbeResult represents the parsed output from an ffprobe inspection.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Prober runs ffprobe through a procexec.Runner.
type Prober struct {
	Binary string
	Runner procexec.Runner
}

// NewProber builds a Prober. An empty binary selects DefaultProbeBinary.
func NewProber(binary string, runner procexec.Runner) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultProbeBinary
	}
	return &Prober{Binary: binary, Runner: runner}
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe inspect: empty path")
	}
	res, err := p.Runner.Run(ctx, p.Binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	if !res.Success() {
		return ProbeResult{}, fmt.Errorf("ffprobe inspect: exit status %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	var result ProbeResult
	if err := json.Unmarshal([]byte(res.Stdout), &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in container order.
func (r ProbeResult) AudioStreams() []Stream {
	var audio []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			audio = append(audio, stream)
		}
	}
	return audio
}

// Duration returns the container duration, or 0 when unavailable.
func (r ProbeResult) Duration() time.Duration {
	seconds := parseFloat(r.Format.Duration)
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// CheckFormat verifies r describes exactly one mono 16 kHz s16le stream.
func CheckFormat(r ProbeResult) error {
	audio := r.AudioStreams()
	if len(audio) != 1 {
		return fmt.Errorf("expected one audio stream, found %d", len(audio))
	}
	stream := audio[0]
	if stream.CodecName != Codec {
		return fmt.Errorf("codec %q, want %q", stream.CodecName, Codec)
	}
	if stream.Channels != Channels {
		return fmt.Errorf("%d channels, want %d", stream.Channels, Channels)
	}
	if rate, err := strconv.Atoi(strings.TrimSpace(stream.SampleRate)); err != nil || rate != SampleRate {
		return fmt.Errorf("sample rate %q, want %d", stream.SampleRate, SampleRate)
	}
	return nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
