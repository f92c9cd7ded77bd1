package transcribe

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"intohear/internal/models"
	"intohear/internal/subtitles"
)

// ErrSequenceConsumed is yielded when a segment sequence is ranged twice.
var ErrSequenceConsumed = errors.New("segment sequence already consumed")

// Request describes one recognition run.
type Request struct {
	// AudioPath is the normalized mono 16 kHz WAV file.
	AudioPath string
	// ModelPath is the verified model artifact. Empty for engines that manage
	// their own weights.
	ModelPath string
	Model     models.Selection
	// Language is "auto" or an ISO 639-1 code.
	Language string
	// WorkBase prefixes every file the engine writes.
	WorkBase string
	Threads  int
}

// Engine is an external speech recognizer.
type Engine interface {
	Name() string
	Binary() string
	// UsesModelArtifact reports whether Stage must provide a cached model file.
	UsesModelArtifact() bool
	// Recognize runs the recognizer to completion and returns the decoded
	// segments as a one-shot sequence in engine order.
	Recognize(ctx context.Context, req Request) (iter.Seq2[subtitles.Segment, error], error)
}

// OneShot wraps seq so that a second range yields ErrSequenceConsumed.
func OneShot(seq iter.Seq2[subtitles.Segment, error]) iter.Seq2[subtitles.Segment, error] {
	var used atomic.Bool
	return func(yield func(subtitles.Segment, error) bool) {
		if used.Swap(true) {
			yield(subtitles.Segment{}, ErrSequenceConsumed)
			return
		}
		seq(yield)
	}
}

// Collect materializes seq, stopping at the first error.
func Collect(seq iter.Seq2[subtitles.Segment, error]) ([]subtitles.Segment, error) {
	var segments []subtitles.Segment
	for segment, err := range seq {
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}
