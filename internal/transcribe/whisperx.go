package transcribe

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"intohear/internal/deps"
	"intohear/internal/language"
	"intohear/internal/logging"
	"intohear/internal/procexec"
	"intohear/internal/services"
	"intohear/internal/subtitles"
)

// WhisperX invocation constants.
const (
	DefaultUVXBinary  = "uvx"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "10"
	BestOf            = "10"
	Temperature       = "0.0"
	Patience          = "1.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// downloadMarkers identify WhisperX stderr emitted when Hugging Face weights
// cannot be fetched.
var downloadMarkers = []string{
	"couldn't connect to",
	"connectionerror",
	"httperror",
	"localentrynotfounderror",
	"401 client error",
}

// WhisperXConfig captures runtime settings for the WhisperX engine.
type WhisperXConfig struct {
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
}

// WhisperX runs WhisperX through uvx. WhisperX downloads and caches its own
// weights, so no model artifact is passed.
type WhisperX struct {
	Config     WhisperXConfig
	BinaryName string
	Runner     procexec.Runner
	Locator    deps.Locator
	Logger     *slog.Logger
}

// NewWhisperX builds the WhisperX engine. When runner is an ExecRunner the
// child environment forces legacy torch.load behavior, which pyannote
// checkpoints still need.
func NewWhisperX(cfg WhisperXConfig, binary string, runner procexec.Runner, locator deps.Locator, logger *slog.Logger) *WhisperX {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultUVXBinary
	}
	if execRunner, ok := runner.(*procexec.ExecRunner); ok && os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		runner = execRunner.WithEnv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return &WhisperX{
		Config:     cfg,
		BinaryName: binary,
		Runner:     runner,
		Locator:    locator,
		Logger:     logging.NewComponentLogger(logger, "whisperx"),
	}
}

// Name returns the engine identifier used in config and logs.
func (w *WhisperX) Name() string { return "whisperx" }

// Binary returns the uvx executable that launches WhisperX.
func (w *WhisperX) Binary() string { return w.BinaryName }

// UsesModelArtifact is false; WhisperX manages its own weights.
func (w *WhisperX) UsesModelArtifact() bool { return false }

// OutputDir is the directory WhisperX writes into for req.
func (w *WhisperX) OutputDir(req Request) string {
	return req.WorkBase + ".whisperx"
}

// OutputPath is the JSON transcript WhisperX writes for req.
func (w *WhisperX) OutputPath(req Request) string {
	stem := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	return filepath.Join(w.OutputDir(req), stem+".json")
}

// Args constructs the uvx command arguments for WhisperX.
func (w *WhisperX) Args(req Request) []string {
	args := make([]string, 0, 40)

	if w.Config.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		req.AudioPath,
		"--model", req.Model.Artifact().String(),
		"--batch_size", BatchSize,
		"--output_dir", w.OutputDir(req),
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := w.Config.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && w.Config.HFToken != "" {
		args = append(args, "--hf_token", w.Config.HFToken)
	}

	if lang := language.ToISO2(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if w.Config.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// Recognize runs WhisperX and decodes its JSON transcript lazily.
func (w *WhisperX) Recognize(ctx context.Context, req Request) (iter.Seq2[subtitles.Segment, error], error) {
	binary, ok := w.Locator.Lookup(w.BinaryName)
	if !ok {
		launch := services.Wrap(services.KindLaunch, "transcription", "locate", w.BinaryName+" not found", nil).
			WithHint(deps.InstallHint(w.BinaryName, runtime.GOOS))
		return nil, services.Wrap(services.KindTranscription, "transcription", "locate", "recognizer unavailable", launch).
			WithHint(launch.Hint)
	}
	if err := os.MkdirAll(w.OutputDir(req), 0o755); err != nil {
		return nil, services.Wrap(services.KindTranscription, "transcription", "prepare output", w.OutputDir(req), err)
	}

	logger := logging.WithContext(ctx, w.Logger)
	logger.Info("recognizing speech",
		logging.String(logging.FieldEventType, "transcription_started"),
		logging.String("model", req.Model.Artifact().String()),
		logging.Bool("cuda", w.Config.CUDAEnabled),
		logging.String("vad_method", w.Config.VADMethod),
	)

	result, err := w.Runner.Run(ctx, binary, w.Args(req)...)
	if err != nil {
		hint := ""
		if details, ok := services.Details(err); ok {
			hint = details.Hint
		}
		return nil, services.Wrap(services.KindTranscription, "transcription", "run", "whisperx did not run", err).
			WithStderr(result.Stderr).
			WithHint(hint)
	}
	if !result.Success() {
		return nil, classifyWhisperXFailure(result)
	}

	output := w.OutputPath(req)
	if _, err := os.Stat(output); err != nil {
		return nil, services.Wrap(services.KindTranscription, "transcription", "read output", "whisperx wrote no transcript", err).
			WithStderr(result.Stderr)
	}
	logger.Info("speech recognized",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Duration("duration", result.Duration),
	)
	return OneShot(decodeArray(output, "segments", whisperXSegment)), nil
}

type whisperXItem struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func whisperXSegment(item whisperXItem) subtitles.Segment {
	return subtitles.Segment{
		Start: secondsToDuration(item.Start),
		End:   secondsToDuration(item.End),
		Text:  item.Text,
	}
}

func classifyWhisperXFailure(result procexec.Result) error {
	lower := strings.ToLower(result.Stderr)
	for _, marker := range downloadMarkers {
		if strings.Contains(lower, marker) {
			return services.Wrap(services.KindModelDownload, "transcription", "fetch weights", "whisperx could not download model weights", nil).
				WithStderr(result.Stderr).
				WithExitCode(result.ExitCode).
				WithHint("check network access to huggingface.co; pyannote VAD also needs a valid hf_token")
		}
	}
	return services.Wrap(services.KindTranscription, "transcription", "run",
		fmt.Sprintf("whisperx exited with status %d", result.ExitCode), nil).
		WithStderr(result.Stderr).
		WithExitCode(result.ExitCode)
}
