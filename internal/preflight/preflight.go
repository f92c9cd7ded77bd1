package preflight

import (
	"context"
	"path/filepath"

	"intohear/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable filesystem and model checks for cfg. Tool
// availability is reported separately by CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Temp directory (always checked)
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))

	// Log directory (when configured)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// History database directory
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.Paths.HistoryDB)))
	}

	switch cfg.Transcription.Engine {
	case config.EngineWhisperCPP:
		results = append(results, CheckDirectoryAccess("Model directory", cfg.Paths.ModelDir))
		results = append(results, CheckModelCache(cfg))
	case config.EngineWhisperX:
		if cfg.WhisperX.VADMethod == "pyannote" {
			results = append(results, CheckHFToken(cfg.WhisperX.HFToken))
		}
	}

	if err := ctx.Err(); err != nil {
		results = append(results, Result{Name: "Preflight", Detail: "interrupted: " + err.Error()})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
