package transcribe

import (
	"bufio"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"time"

	"intohear/internal/subtitles"
)

// decodeArray streams the elements of the top-level array stored under key
// in the JSON object at path. Elements are converted with convert; a file
// without key yields no segments.
func decodeArray[T any](path, key string, convert func(T) subtitles.Segment) iter.Seq2[subtitles.Segment, error] {
	return func(yield func(subtitles.Segment, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(subtitles.Segment{}, err)
			return
		}
		defer file.Close()

		dec := json.NewDecoder(bufio.NewReader(file))
		found, err := seekArray(dec, key)
		if err != nil {
			yield(subtitles.Segment{}, fmt.Errorf("decode %s: %w", path, err))
			return
		}
		if !found {
			return
		}
		for dec.More() {
			var item T
			if err := dec.Decode(&item); err != nil {
				yield(subtitles.Segment{}, fmt.Errorf("decode %s: %w", path, err))
				return
			}
			if !yield(clampSegment(convert(item)), nil) {
				return
			}
		}
	}
}

// seekArray advances dec past the opening bracket of the array under key.
func seekArray(dec *json.Decoder, key string) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return false, fmt.Errorf("expected JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return false, err
		}
		name, _ := tok.(string)
		if name != key {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return false, err
			}
			continue
		}
		tok, err = dec.Token()
		if err != nil {
			return false, err
		}
		if tok == nil {
			return false, nil
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return false, fmt.Errorf("%s is not an array", key)
		}
		return true, nil
	}
	return false, nil
}

func clampSegment(seg subtitles.Segment) subtitles.Segment {
	if seg.Start < 0 {
		seg.Start = 0
	}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}
	return seg
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
}
