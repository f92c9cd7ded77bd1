package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"intohear/internal/config"
	"intohear/internal/logging"
	"intohear/internal/models"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration and show what it resolves to",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("load generated config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			cached := describeConfig(out, cfg)
			if !cached && cfg.Transcription.Engine == config.EngineWhisperCPP {
				fmt.Fprintf(out, "Run `intohear models fetch %s` to download the model now, or let the first run fetch it.\n",
					cfg.Transcription.Model)
			}
			fmt.Fprintln(out, "Run `intohear doctor` to check that the external tools are installed.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and show the resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configExists {
				source += " (not found, defaults used)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			describeConfig(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

// describeConfig renders the settings a run would use and reports whether
// the configured model artifact is already cached.
func describeConfig(out io.Writer, cfg *config.Config) bool {
	sel := models.Parse(cfg.Transcription.Model)
	store := models.NewStore(cfg.Paths.ModelDir, cfg.Transcription.ModelBaseURL, logging.NewNop())

	artifact := "managed by WhisperX"
	cached := false
	if cfg.Transcription.Engine == config.EngineWhisperCPP {
		cached = store.Present(sel)
		state := "not cached"
		if cached {
			state = "cached"
		}
		artifact = fmt.Sprintf("%s (%s)", store.Path(sel), state)
	}
	logDir := cfg.Paths.LogDir
	if logDir == "" {
		logDir = "disabled"
	}
	history := "disabled"
	if cfg.History.Enabled {
		history = cfg.Paths.HistoryDB
	}

	rows := [][]string{
		{"Engine", cfg.Transcription.Engine},
		{"Model", modelLabel(sel)},
		{"Model artifact", artifact},
		{"Model cache", cfg.Paths.ModelDir},
		{"Language", cfg.Transcription.Language},
		{"Temp dir", cfg.Paths.TempDir},
		{"Log dir", logDir},
		{"History", history},
		{"Batch concurrency", strconv.Itoa(cfg.Batch.Concurrency)},
	}
	fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
	return cached
}
