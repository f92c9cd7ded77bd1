// Package main hosts the IntoHear CLI entrypoint and command graph.
//
// The Cobra-based command tree turns a URL or local audio file into SubRip
// captions. The root command keeps the original one-shot form
// (`intohear <source> [model]`) and falls back to an interactive menu when
// started on a terminal without arguments. Subcommands cover explicit
// transcription, batch runs, model cache maintenance, readiness checks, run
// history, the run log, and configuration scaffolding.
//
// Keep this package lean: the pipeline lives in internal/pipeline and its
// stages; this package resolves configuration, builds the stages, and
// persists the returned subtitle text.
package main
