package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DetectText guesses the ISO 639-1 code of recognized text by majority vote
// over the non-empty lines. It returns "" when nothing could be classified.
func DetectText(lines []string) string {
	votes := make(map[string]int)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if code := whatlanggo.DetectLang(line).Iso6391(); code != "" {
			votes[code]++
		}
	}
	best, bestCount := "", 0
	for code, count := range votes {
		if count > bestCount || (count == bestCount && code < best) {
			best, bestCount = code, count
		}
	}
	return best
}
