// Package logging assembles structured slog loggers and formatting helpers used
// across IntoHear.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, stages, and source references. Console output always
// targets stderr; an optional JSON copy lands in the configured log directory
// and is rotated and pruned by age. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
