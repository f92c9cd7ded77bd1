package subtitles

import "time"

// Segment is one recognized utterance. Offsets are measured from the start of
// the normalized audio.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns the segment length, never negative.
func (s Segment) Duration() time.Duration {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Cue is one rendered subtitle block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}
