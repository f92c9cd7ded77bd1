package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"intohear/internal/acquire"
	"intohear/internal/logging"
	"intohear/internal/pipeline"
	"intohear/internal/preflight"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	var outputDir string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <source>...",
		Short: "Transcribe several sources concurrently",
		Long: "Each source runs as an independent pipeline with its own temporary files.\n" +
			"A failing source never stops the others; the command exits non-zero when any source failed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			limit := concurrency
			if limit <= 0 {
				limit = cfg.Batch.Concurrency
			}
			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = "."
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("ensure output directory: %w", err)
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

			// Fetch the model once up front so concurrent runs do not all
			// wait on the same download lock with no feedback.
			if set.engine.UsesModelArtifact() {
				if _, _, err := set.models.Ensure(cmd.Context(), set.model); err != nil {
					return describeFailure(err)
				}
			}

			out := cmd.OutOrStdout()
			outcomes := set.coordinator.RunBatch(cmd.Context(), args, limit, func(outcome pipeline.Outcome) {
				if outcome.Err != nil {
					fmt.Fprintf(out, "[%d/%d] FAILED %s: %v\n", outcome.Index+1, len(args), outcome.Source, describeFailure(outcome.Err))
					return
				}
				target := filepath.Join(dir, batchOutputName(outcome.Index, outcome.Source))
				written, err := writeDocument(target, outcome.Result.Document)
				if err != nil {
					fmt.Fprintf(out, "[%d/%d] FAILED %s: %v\n", outcome.Index+1, len(args), outcome.Source, err)
					return
				}
				recordOutput(cmd.Context(), set, logger, outcome.Result.RunID, written)
				fmt.Fprintf(out, "[%d/%d] OK %s -> %s (%d subtitles)\n", outcome.Index+1, len(args), outcome.Source, written, outcome.Result.Segments)
			})

			failed := pipeline.Failed(outcomes)
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d sources failed", len(failed), len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Model size: tiny, base, small, medium, large")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Recognition engine: whisper-cpp or whisperx")
	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "Spoken language (\"auto\" or a tag such as en)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Maximum concurrent runs (default from [batch] concurrency)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Directory for the subtitle files (default current directory)")
	return cmd
}

// batchOutputName returns "<n>-<base>.srt" where n is the 1-based position
// of the source and base is derived from its file name or URL path.
func batchOutputName(index int, source string) string {
	return fmt.Sprintf("%d-%s.srt", index+1, sourceBaseName(source))
}

func sourceBaseName(source string) string {
	var name string
	switch local, ok := acquire.ResolveLocal(source); {
	case ok:
		name = trimExt(filepath.Base(local))
	case acquire.IsRemote(source):
		if parsed, err := url.Parse(source); err == nil {
			name = trimExt(path.Base(parsed.Path))
			if name == "/" || name == "." || name == "watch" {
				name = ""
			}
			if name == "" {
				name = parsed.Query().Get("v")
			}
			if name == "" {
				name = parsed.Hostname()
			}
		}
	default:
		name = trimExt(filepath.Base(source))
	}
	if name = sanitizeName(name); name == "" {
		return "captions"
	}
	return name
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func sanitizeName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-.")
}
