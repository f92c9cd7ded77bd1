package subtitles

import "fmt"

// CountCues returns the number of non-empty blocks in SubRip text.
func CountCues(content string) int {
	return len(splitBlocks(content))
}

// Validate checks SubRip text for format issues. An empty slice means the
// document passed. An empty document is valid.
func Validate(content string) []string {
	cues, err := ParseSRT(content)
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	var issues []string
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("non_sequential_index: block %d has index %d", i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("end_before_start: cue %d", cue.Index))
		}
	}
	return issues
}
