// Package matcher grades free-text answers against item values.
package matcher

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

// Relative edit distance thresholds. A string answer is accepted when
// distance/len(target) is strictly below the threshold.
const (
	NameThreshold   = 0.1
	AnswerThreshold = 0.1
)

// Result tells which target a submission matched.
type Result int

const (
	NoMatch Result = iota
	PrimaryMatch
	AlternateMatch
)

// Correct reports whether the result counts as a correct answer.
func (r Result) Correct() bool { return r != NoMatch }

// IsCorrect grades input against target using AnswerThreshold. Edits are
// counted as optimal string alignment, so two swapped adjacent letters are a
// single edit: "untied kingdom" is one edit from "united kingdom".
func IsCorrect(input, target string, typ catalog.AttrType, accepted ...string) bool {
	return Match(input, target, typ, AnswerThreshold, accepted...).Correct()
}

// Match grades input against target, then each accepted alternate. The
// primary target is checked first and wins when both would match.
func Match(input, target string, typ catalog.AttrType, threshold float64, accepted ...string) Result {
	switch typ {
	case catalog.TypeNumber:
		if numbersEqual(input, target) {
			return PrimaryMatch
		}
		for _, alt := range accepted {
			if numbersEqual(input, alt) {
				return AlternateMatch
			}
		}
		return NoMatch
	default:
		in := Normalize(input)
		if in == "" {
			return NoMatch
		}
		if stringsClose(in, Normalize(target), threshold) {
			return PrimaryMatch
		}
		for _, alt := range accepted {
			if stringsClose(in, Normalize(alt), threshold) {
				return AlternateMatch
			}
		}
		return NoMatch
	}
}

// Normalize folds s for comparison: diacritics stripped, lowercased, and
// spaces, hyphens, apostrophes and periods removed.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\'', '.':
			return -1
		}
		return unicode.ToLower(r)
	}, folded)
}

func stringsClose(in, target string, threshold float64) bool {
	n := utf8.RuneCountInString(target)
	if n == 0 {
		return false
	}
	return float64(Distance(in, target))/float64(n) < threshold
}

func numbersEqual(input, target string) bool {
	a, ok := parseNumber(input)
	if !ok {
		return false
	}
	b, ok := parseNumber(target)
	if !ok {
		return false
	}
	return a == b
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
