package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"intohear/internal/logging"
	"intohear/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Paths.LogDir) == "" {
				fmt.Fprintln(out, "File logging is disabled ([paths] log_dir is empty)")
				return nil
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)

			result, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				printLogLine(out, line, raw)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			err = logs.Follow(cmd.Context(), path, result.Offset, logs.DefaultPollInterval, func(line string) {
				printLogLine(out, line, raw)
			})
			if isCanceled(err) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines as written")
	return cmd
}

func printLogLine(out io.Writer, line string, raw bool) {
	if raw {
		fmt.Fprintln(out, line)
		return
	}
	fmt.Fprintln(out, formatLogLine(line))
}

// formatLogLine renders one JSON log record the way the console handler
// prints it. Lines that are not JSON objects pass through unchanged.
func formatLogLine(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil || record == nil {
		return line
	}

	header := make([]string, 0, 4)
	if ts, ok := record["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ts = parsed.Local().Format("2006-01-02 15:04:05")
		}
		header = append(header, ts)
	}
	level, _ := record["level"].(string)
	if level = strings.ToUpper(strings.TrimSpace(level)); level == "" {
		level = "INFO"
	}
	header = append(header, level)
	if component, ok := record[logging.FieldComponent].(string); ok && component != "" {
		header = append(header, "["+component+"]")
	}
	if subject := logSubject(record); subject != "" {
		header = append(header, subject)
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, " "))
	if msg, ok := record["msg"].(string); ok && strings.TrimSpace(msg) != "" {
		b.WriteString(" - ")
		b.WriteString(strings.TrimSpace(msg))
	}

	skip := map[string]struct{}{
		"ts": {}, "level": {}, "msg": {}, "source": {},
		logging.FieldComponent: {}, logging.FieldRunID: {}, logging.FieldStage: {},
	}
	keys := make([]string, 0, len(record))
	for key := range record {
		if _, ok := skip[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := fmt.Sprint(record[key])
		if strings.TrimSpace(value) == "" {
			continue
		}
		b.WriteString("\n    - ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}

func logSubject(record map[string]any) string {
	runID, _ := record[logging.FieldRunID].(string)
	stage, _ := record[logging.FieldStage].(string)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID != "" && stage != "":
		return fmt.Sprintf("Run %s (%s)", runID, stage)
	case runID != "":
		return "Run " + runID
	case stage != "":
		return "(" + stage + ")"
	default:
		return ""
	}
}
