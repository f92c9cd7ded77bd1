package transcribe

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"intohear/internal/deps"
	"intohear/internal/language"
	"intohear/internal/logging"
	"intohear/internal/procexec"
	"intohear/internal/services"
	"intohear/internal/subtitles"
)

// DefaultWhisperCPPBinary is the whisper.cpp command line front end.
const DefaultWhisperCPPBinary = "whisper-cli"

// modelLoadMarkers identify whisper-cli stderr lines emitted when the model
// file cannot be read or parsed.
var modelLoadMarkers = []string{
	"failed to load model",
	"failed to initialize whisper context",
	"invalid model data",
	"bad magic",
}

// WhisperCPP runs whisper.cpp's whisper-cli against a ggml model artifact.
type WhisperCPP struct {
	BinaryName string
	Runner     procexec.Runner
	Locator    deps.Locator
	Logger     *slog.Logger
}

// NewWhisperCPP builds the whisper.cpp engine. An empty binary selects
// DefaultWhisperCPPBinary.
func NewWhisperCPP(binary string, runner procexec.Runner, locator deps.Locator, logger *slog.Logger) *WhisperCPP {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultWhisperCPPBinary
	}
	return &WhisperCPP{
		BinaryName: binary,
		Runner:     runner,
		Locator:    locator,
		Logger:     logging.NewComponentLogger(logger, "whisper.cpp"),
	}
}

// Name returns the engine identifier used in config and logs.
func (w *WhisperCPP) Name() string { return "whisper-cpp" }

// Binary returns the configured whisper-cli executable.
func (w *WhisperCPP) Binary() string { return w.BinaryName }

// UsesModelArtifact is always true; whisper-cli reads a cached ggml file.
func (w *WhisperCPP) UsesModelArtifact() bool { return true }

// Args returns the whisper-cli argument list for req. JSON output lands
// at WorkBase + ".json".
func (w *WhisperCPP) Args(req Request) []string {
	lang := language.Auto
	if code := language.ToISO2(req.Language); code != "" {
		lang = code
	}
	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-l", lang,
		"-oj",
		"-of", req.WorkBase,
		"-np",
	}
	if req.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(req.Threads))
	}
	return args
}

// OutputPath is the JSON file whisper-cli writes for req.
func (w *WhisperCPP) OutputPath(req Request) string {
	return req.WorkBase + ".json"
}

// Recognize runs whisper-cli and decodes its JSON transcript lazily.
func (w *WhisperCPP) Recognize(ctx context.Context, req Request) (iter.Seq2[subtitles.Segment, error], error) {
	binary, ok := w.Locator.Lookup(w.BinaryName)
	if !ok {
		launch := services.Wrap(services.KindLaunch, "transcription", "locate", w.BinaryName+" not found", nil).
			WithHint(deps.InstallHint(w.BinaryName, runtime.GOOS))
		return nil, services.Wrap(services.KindTranscription, "transcription", "locate", "recognizer unavailable", launch).
			WithHint(launch.Hint)
	}

	logger := logging.WithContext(ctx, w.Logger)
	logger.Info("recognizing speech",
		logging.String(logging.FieldEventType, "transcription_started"),
		logging.String("model", req.Model.String()),
		logging.String("language", req.Language),
	)

	result, err := w.Runner.Run(ctx, binary, w.Args(req)...)
	if err != nil {
		hint := ""
		if details, ok := services.Details(err); ok {
			hint = details.Hint
		}
		return nil, services.Wrap(services.KindTranscription, "transcription", "run", "whisper-cli did not run", err).
			WithStderr(result.Stderr).
			WithHint(hint)
	}
	if !result.Success() {
		return nil, classifyWhisperCPPFailure(req, result)
	}

	output := w.OutputPath(req)
	if _, err := os.Stat(output); err != nil {
		return nil, services.Wrap(services.KindTranscription, "transcription", "read output", "whisper-cli wrote no transcript", err).
			WithStderr(result.Stderr)
	}
	logger.Info("speech recognized",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Duration("duration", result.Duration),
	)
	return OneShot(decodeArray(output, "transcription", whisperCPPSegment)), nil
}

type whisperCPPItem struct {
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	Text string `json:"text"`
}

func whisperCPPSegment(item whisperCPPItem) subtitles.Segment {
	return subtitles.Segment{
		Start: time.Duration(item.Offsets.From) * time.Millisecond,
		End:   time.Duration(item.Offsets.To) * time.Millisecond,
		Text:  item.Text,
	}
}

func classifyWhisperCPPFailure(req Request, result procexec.Result) error {
	lower := strings.ToLower(result.Stderr)
	for _, marker := range modelLoadMarkers {
		if strings.Contains(lower, marker) {
			return services.Wrap(services.KindModelLoad, "transcription", "load model", req.ModelPath, nil).
				WithStderr(result.Stderr).
				WithExitCode(result.ExitCode).
				WithHint(fmt.Sprintf("delete %s so it is downloaded again", req.ModelPath))
		}
	}
	return services.Wrap(services.KindTranscription, "transcription", "run",
		fmt.Sprintf("whisper-cli exited with status %d", result.ExitCode), nil).
		WithStderr(result.Stderr).
		WithExitCode(result.ExitCode)
}
