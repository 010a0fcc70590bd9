package model

import (
	"strings"
	"unicode/utf8"
)

// DefaultNoiseWords are low-signal tokens (acknowledgements and bump
// phrases) that disqualify a text regardless of length.
var DefaultNoiseWords = []string{"מקפיצה", "מקיפיצה", "up", "תודה", "הקפצה", "מעלה"}

// QualityFilter classifies a text as substantive or noise. MinLength differs
// between call sites (inline comment gating uses 10, the summary job uses 15)
// and is tuned independently per use, so each site carries its own filter.
type QualityFilter struct {
	MinLength  int
	NoiseWords []string
}

// IsSubstantive reports whether text carries enough signal to be worth
// embedding or summarizing.
func (f QualityFilter) IsSubstantive(text string) bool {
	if text == "" {
		return false
	}
	clean := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(clean) < f.MinLength {
		return false
	}
	for _, w := range f.NoiseWords {
		if strings.Contains(clean, w) {
			return false
		}
	}
	return true
}
