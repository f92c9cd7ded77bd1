// Package pipeline coordinates one source reference through acquisition,
// normalization, transcription, and formatting.
//
// Each Run drives its own looplab/fsm state machine
// (idle → acquiring → normalizing → transcribing → formatting → done, with
// failed reachable from every working state) and owns an Artifacts scope
// that deletes every temporary file it created when the run ends, whatever
// the outcome. The coordinator returns the subtitle text; writing it to disk
// is the caller's job.
//
// RunBatch runs several independent coordinators' worth of work concurrently
// with a bounded errgroup. Runs share nothing except the model cache.
package pipeline
