package models

import "strings"

// Selection is a recognition model size category.
type Selection int

const (
	Tiny Selection = iota
	Small
	Base
	Medium
	// Large is accepted for compatibility but resolves to the medium artifact.
	Large
)

// Default is used when no selection is given or the value is unrecognized.
const Default = Medium

var selectionNames = map[Selection]string{
	Tiny:   "tiny",
	Small:  "small",
	Base:   "base",
	Medium: "medium",
	Large:  "large",
}

// All returns every selection in menu order.
func All() []Selection {
	return []Selection{Tiny, Small, Base, Medium, Large}
}

// Parse maps a model name to a Selection. Empty or unknown input yields Default.
func Parse(value string) Selection {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "tiny":
		return Tiny
	case "small":
		return Small
	case "base":
		return Base
	case "medium":
		return Medium
	case "large":
		return Large
	default:
		return Default
	}
}

// ParseMenuChoice accepts either a menu number ("1".."5") or a model name.
func ParseMenuChoice(value string) Selection {
	switch strings.TrimSpace(value) {
	case "1":
		return Tiny
	case "2":
		return Small
	case "3":
		return Base
	case "4":
		return Medium
	case "5":
		return Large
	default:
		return Parse(value)
	}
}

// Known reports whether value names a selection exactly.
func Known(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, name := range selectionNames {
		if name == value {
			return true
		}
	}
	return false
}

func (s Selection) String() string {
	if name, ok := selectionNames[s]; ok {
		return name
	}
	return selectionNames[Default]
}

// Artifact returns the selection whose weights are actually loaded.
func (s Selection) Artifact() Selection {
	switch s {
	case Tiny, Small, Base, Medium:
		return s
	default:
		return Medium
	}
}

// Aliased reports whether the selection resolves to a different artifact.
func (s Selection) Aliased() bool {
	return s.Artifact() != s
}

// FileName returns the stable on-disk file name for the selection.
func (s Selection) FileName() string {
	return "ggml-" + s.Artifact().String() + ".bin"
}
