// Package preflight provides readiness checks for the external tools and
// filesystem paths that IntoHear depends on.
//
// These checks run in two contexts:
//   - "intohear doctor" renders every result, including optional tools.
//   - The transcribe and batch commands call RunAll before the first run so a
//     missing directory or tool fails fast instead of mid-pipeline.
//
// Engine-specific checks are gated by the configured engine; checks for the
// engine that is not selected are skipped.
package preflight
