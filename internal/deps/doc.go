// Package deps resolves the external tools the pipeline shells out to
// (yt-dlp, ffmpeg, whisper-cli, uvx) and reports actionable diagnostics when
// one is missing.
//
// Lookups never fail with an error: Locator returns a boolean, and
// CheckBinaries folds the result into Status values the doctor command
// renders. InstallHint supplies the per-platform remediation text attached to
// launch errors.
package deps
