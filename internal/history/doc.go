// Package history records pipeline runs in a local SQLite database so the CLI
// can show what was transcribed, with which model, and why a run failed.
//
// The store uses the pure Go modernc.org/sqlite driver in WAL mode and
// applies embedded migrations on open.
package history
