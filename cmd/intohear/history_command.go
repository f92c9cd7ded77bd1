package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"intohear/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Run history is disabled ([history] enabled = false)")
				return nil
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				fmt.Fprintf(out, "Pruned %d run(s) older than %d days\n", removed, pruneDays)
			}

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, historyRow(entry))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Status", "Source", "Model", "Segments", "Duration", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days before listing")
	return cmd
}

func historyRow(entry history.Entry) []string {
	detail := entry.OutputPath
	if entry.Status != history.StatusSucceeded {
		detail = entry.FailedStage
		if entry.ErrorKind != "" {
			detail += " (" + entry.ErrorKind + ")"
		}
	}
	source := entry.Source
	if runes := []rune(source); len(runes) > 48 {
		source = string(runes[:45]) + "..."
	}
	return []string{
		humanize.Time(entry.StartedAt),
		string(entry.Status),
		source,
		entry.Model,
		strconv.Itoa(entry.Segments),
		entry.Duration().Round(100 * time.Millisecond).String(),
		detail,
	}
}
