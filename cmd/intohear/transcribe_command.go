package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"intohear/internal/fileutil"
	"intohear/internal/logging"
	"intohear/internal/pipeline"
	"intohear/internal/preflight"
	"intohear/internal/services"
	"intohear/internal/subtitles"
)

// stderrTailLines bounds how much captured tool output an error shows.
const stderrTailLines = 20

type outputTarget struct {
	Path     string
	Stdout   bool
	Validate bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	var target outputTarget

	cmd := &cobra.Command{
		Use:   "transcribe <source>",
		Short: "Transcribe one URL or audio file into SRT subtitles",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("provide one URL or audio file. Example: intohear transcribe https://youtu.be/abc123\nRun intohear transcribe --help for more details")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if target.Path == "" && !target.Stdout {
				target.Path = defaultOutputFile
			}
			return transcribeOne(cmd, ctx, args[0], opts, target)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Model size: tiny, base, small, medium, large")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Recognition engine: whisper-cpp or whisperx")
	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "Spoken language (\"auto\" or a tag such as en)")
	cmd.Flags().StringVarP(&target.Path, "output", "o", "", fmt.Sprintf("Subtitle file to write (default %q)", defaultOutputFile))
	cmd.Flags().BoolVar(&target.Stdout, "stdout", false, "Print subtitles to stdout instead of writing a file")
	cmd.Flags().BoolVar(&target.Validate, "validate", false, "Check the generated SRT structure before writing it")
	return cmd
}

// transcribeOne runs a single source through the pipeline and persists the
// document. The coordinator only returns text; writing it happens here.
func transcribeOne(cmd *cobra.Command, ctx *commandContext, source string, opts runOptions, target outputTarget) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
		return preflightError(failed)
	}

	set, err := buildPipeline(cfg, logger, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := set.Close(); closeErr != nil {
			logger.Debug("history close failed", logging.Error(closeErr))
		}
	}()

	res, err := set.coordinator.Run(cmd.Context(), pipeline.Request{Source: source})
	if err != nil {
		return describeFailure(err)
	}
	if target.Validate {
		if issues := subtitles.Validate(res.Document); len(issues) > 0 {
			return fmt.Errorf("generated subtitles failed validation: %s", strings.Join(issues, ", "))
		}
	}

	if target.Stdout {
		_, err := fmt.Fprint(cmd.OutOrStdout(), res.Document)
		return err
	}
	path, err := writeDocument(target.Path, res.Document)
	if err != nil {
		return err
	}
	recordOutput(cmd.Context(), set, logger, res.RunID, path)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d subtitles to %s\n", res.Segments, path)
	return nil
}

// writeDocument atomically writes document to path and returns the
// absolute location.
func writeDocument(path, document string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if err := fileutil.WriteFileAtomic(abs, []byte(document), 0o644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return abs, nil
}

func recordOutput(ctx context.Context, set *pipelineSet, logger *slog.Logger, runID, path string) {
	if set.history == nil {
		return
	}
	if err := set.history.SetOutputPath(context.WithoutCancel(ctx), runID, path); err != nil {
		logger.Debug("history output path not recorded", logging.Error(err))
	}
}

// describeFailure renders a stage error with its hint and the tail of the
// captured tool output. Cancellation passes through untouched so main stays
// quiet about it.
func describeFailure(err error) error {
	if isCanceled(err) {
		return err
	}
	details, ok := services.Details(err)
	if !ok {
		return err
	}
	return &failureError{err: err, details: details}
}

func isCanceled(err error) bool {
	return errors.Is(err, services.ErrCanceled) || errors.Is(err, context.Canceled)
}

type failureError struct {
	err     error
	details *services.StageError
}

func (f *failureError) Error() string {
	var b strings.Builder
	b.WriteString(f.err.Error())
	if f.details.ExitCode != 0 {
		fmt.Fprintf(&b, "\nexit status: %d", f.details.ExitCode)
	}
	if hint := launchHint(f.err, f.details); hint != "" {
		fmt.Fprintf(&b, "\nhint: %s", hint)
	}
	if stderr := tail(f.details.Stderr, stderrTailLines); stderr != "" {
		b.WriteString("\nstderr:\n")
		for line := range strings.Lines(stderr) {
			b.WriteString("  ")
			b.WriteString(strings.TrimRight(line, "\n"))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f *failureError) Unwrap() error { return f.err }

// launchHint prefers the outer hint and falls back to an inner launch error's.
func launchHint(err error, details *services.StageError) string {
	if details.Hint != "" {
		return details.Hint
	}
	var inner *services.StageError
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		if errors.As(cause, &inner) && inner.Hint != "" {
			return inner.Hint
		}
	}
	return ""
}

func tail(text string, lines int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return fmt.Errorf("preflight failed (run intohear doctor): %s", strings.Join(parts, "; "))
}
