package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"intohear/internal/models"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and manage the model cache",
	}
	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsFetchCommand(ctx))
	modelsCmd.AddCommand(newModelsRemoveCommand(ctx))
	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List model sizes and whether they are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			store := models.NewStore(cfg.Paths.ModelDir, cfg.Transcription.ModelBaseURL, nil)
			configured := models.Parse(cfg.Transcription.Model)

			rows := make([][]string, 0, len(models.All()))
			for _, entry := range store.List() {
				size := "-"
				updated := "-"
				if entry.Present {
					size = humanize.Bytes(uint64(entry.Size))
					updated = humanize.Time(entry.ModTime)
				}
				name := entry.Selection.String()
				if entry.Selection == configured.Artifact() {
					name += " *"
				}
				rows = append(rows, []string{name, entry.FileName, yesNo(entry.Present), size, updated})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Model", "File", "Cached", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Cache: %s (* = configured)\n", cfg.Paths.ModelDir)
			return nil
		},
	}
}

func newModelsFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [model]",
		Short: "Download a model into the cache ahead of the first run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sel := models.Parse(cfg.Transcription.Model)
			if len(args) == 1 {
				if !models.Known(args[0]) {
					return fmt.Errorf("unknown model %q (choose tiny, small, base, medium, or large)", strings.TrimSpace(args[0]))
				}
				sel = models.Parse(args[0])
			}
			store := newModelStore(cfg, logger, cmd.ErrOrStderr())
			path, fetched, err := store.Ensure(cmd.Context(), sel)
			if err != nil {
				return describeFailure(err)
			}
			if err := models.Verify(path); err != nil {
				return describeFailure(err)
			}
			out := cmd.OutOrStdout()
			if fetched {
				fmt.Fprintf(out, "Downloaded %s to %s\n", sel.Artifact().FileName(), path)
			} else {
				fmt.Fprintf(out, "%s already cached at %s\n", sel.Artifact().FileName(), path)
			}
			return nil
		},
	}
}

func newModelsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model>",
		Short: "Delete a cached model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if !models.Known(args[0]) {
				return fmt.Errorf("unknown model %q", strings.TrimSpace(args[0]))
			}
			sel := models.Parse(args[0])
			store := models.NewStore(cfg.Paths.ModelDir, cfg.Transcription.ModelBaseURL, nil)
			if !store.Present(sel) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not cached\n", sel.Artifact().FileName())
				return nil
			}
			if err := store.Remove(sel); err != nil {
				return fmt.Errorf("remove model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", store.Path(sel))
			return nil
		},
	}
}

func modelLabelFromConfig(value string) string {
	return modelLabel(models.Parse(value))
}
