// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source references
//     for logging.
//   - The StageError type and its Kind taxonomy (launch, acquisition,
//     normalization, model download, model load, transcription, canceled)
//     plus the Wrap helper and sentinel markers for errors.Is matching.
//
// Every stage failure that leaves a stage package should be a *StageError so
// the coordinator and CLI can report the kind, message, and captured stderr
// uniformly.
package services
