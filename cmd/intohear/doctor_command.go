package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intohear/internal/config"
	"intohear/internal/deps"
	"intohear/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var checkNetwork bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories, and the model cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			problems := 0

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (not found; defaults in use)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configDetail, colorize))
			lines = append(lines, renderStatusLine("Engine", statusInfo, cfg.Transcription.Engine, colorize))
			lines = append(lines, renderStatusLine("Model", statusInfo, modelLabelFromConfig(cfg.Transcription.Model), colorize))
			lines = append(lines, renderStatusLine("Language", statusInfo, cfg.Transcription.Language, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Tools", colorize)...)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind, message := depStatusLine(cmd, status)
				if kind == statusError {
					problems++
				}
				lines = append(lines, renderStatusLine(status.Name, kind, message, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			results := preflight.RunAll(cmd.Context(), cfg)
			if checkNetwork && cfg.Transcription.Engine != config.EngineWhisperX {
				results = append(results, preflight.CheckModelHost(cmd.Context(), cfg.Transcription.ModelBaseURL))
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkNetwork, "network", false, "Also check that the model host is reachable")
	return cmd
}

func depStatusLine(cmd *cobra.Command, status deps.Status) (statusKind, string) {
	if status.Available {
		message := status.Resolved
		if version := preflight.ToolVersion(cmd.Context(), status.Resolved, preflight.VersionFlag(status.Command)); version != "" {
			message = fmt.Sprintf("%s (%s)", status.Resolved, version)
		}
		return statusOK, message
	}
	message := status.Detail
	if status.Hint != "" {
		message += "; " + status.Hint
	}
	if status.Optional {
		return statusWarn, message + " (optional: " + status.Description + ")"
	}
	return statusError, message
}
