package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto selects the recognition engine's own language detection.
const Auto = "auto"

// aliases maps ISO 639-2 codes (both bibliographic and terminology forms) and
// English word forms to the ISO 639-1 code whisper expects.
var aliases = map[string]string{
	"eng": "en", "english": "en",
	"spa": "es", "spanish": "es",
	"fra": "fr", "fre": "fr", "french": "fr",
	"deu": "de", "ger": "de", "german": "de",
	"ita": "it", "italian": "it",
	"por": "pt", "portuguese": "pt",
	"jpn": "ja", "japanese": "ja",
	"kor": "ko", "korean": "ko",
	"zho": "zh", "chi": "zh", "chinese": "zh",
	"rus": "ru", "russian": "ru",
	"ara": "ar", "arabic": "ar",
	"hin": "hi", "hindi": "hi",
	"nld": "nl", "dut": "nl", "dutch": "nl",
	"pol": "pl", "polish": "pl",
	"swe": "sv", "swedish": "sv",
	"dan": "da", "danish": "da",
	"nor": "no", "norwegian": "no",
	"fin": "fi", "finnish": "fi",
	"ukr": "uk", "ukrainian": "uk",
	"tur": "tr", "turkish": "tr",
}

// known holds the 2-letter codes reachable through aliases.
var known = func() map[string]struct{} {
	set := make(map[string]struct{}, len(aliases))
	for _, code := range aliases {
		set[code] = struct{}{}
	}
	return set
}()

func lookup(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	if _, ok := known[value]; ok {
		return value, true
	}
	code, ok := aliases[value]
	return code, ok
}

// IsAuto reports whether value requests automatic detection. Empty counts.
func IsAuto(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, Auto)
}

// Resolve turns a user supplied language into the code passed to the
// recognition engines: "auto", or an ISO 639-1 code when one exists.
// Word forms ("french") and BCP 47 tags ("pt-BR") are accepted.
func Resolve(value string) (string, error) {
	if IsAuto(value) {
		return Auto, nil
	}
	if code, ok := lookup(value); ok {
		return code, nil
	}
	tag, err := xlanguage.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("unknown language %q", value)
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return "", fmt.Errorf("unknown language %q", value)
	}
	return base.String(), nil
}

// ToISO2 converts a recognized code or word to ISO 639-1. Unknown 2-letter
// codes pass through; anything else, including "auto", yields "".
func ToISO2(code string) string {
	if IsAuto(code) {
		return ""
	}
	if resolved, ok := lookup(code); ok {
		return resolved
	}
	if code = strings.ToLower(strings.TrimSpace(code)); len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns the English name of a language code for log lines.
func DisplayName(code string) string {
	if IsAuto(code) {
		return "Automatic"
	}
	value := strings.TrimSpace(code)
	if resolved, ok := lookup(value); ok {
		value = resolved
	}
	if tag, err := xlanguage.Parse(value); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(value)
}
