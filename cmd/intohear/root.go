package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultOutputFile = "captions.srt"

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var verboseFlag bool
	var outputFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:   "intohear [source] [model]",
		Short: "Turn a URL or audio file into SRT subtitles",
		Long: "IntoHear downloads audio with yt-dlp (or reads a local file), normalizes it with ffmpeg,\n" +
			"transcribes it with whisper.cpp or WhisperX, and writes SubRip subtitles.\n\n" +
			"Run without arguments on a terminal for the interactive menu.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if !stdinIsTerminal(cmd) {
					return cmd.Help()
				}
				return runMenu(cmd, ctx)
			}
			opts := runOptions{}
			if len(args) > 1 {
				opts.Model = args[1]
			}
			output := outputFlag
			if output == "" {
				output = defaultOutputFile
			}
			return transcribeOne(cmd, ctx, args[0], opts, outputTarget{Path: output})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Shorthand for --log-level debug")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", fmt.Sprintf("Subtitle file to write (default %q)", defaultOutputFile))

	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// stdinIsTerminal reports whether the command reads from an interactive
// terminal. Tests that replace stdin are never interactive.
func stdinIsTerminal(cmd *cobra.Command) bool {
	file, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return isTerminal(file)
}
