// Package token provides a deterministic token cost estimator.
//
// Persisted summaries store their estimated cost, and those estimates are
// compared against budgets across process restarts, so the estimator must be
// a pure function of its input: same text, same value, on every run.
package token

import (
	"strings"
	"unicode"
)

// Estimate returns the approximate token cost of text. Runes from dense
// scripts (CJK ideographs, kana, hangul) cost 1.5 units each since they
// typically encode a word or morpheme per code point; the remaining text
// costs 1 unit per whitespace-delimited word.
func Estimate(text string) int {
	if text == "" {
		return 0
	}

	dense := 0
	var rest strings.Builder
	for _, r := range text {
		if isDense(r) {
			dense++
			// Replace with a space so adjacent latin fragments are
			// still split into separate words.
			rest.WriteByte(' ')
			continue
		}
		rest.WriteRune(r)
	}

	words := len(strings.Fields(rest.String()))
	return words + dense + dense/2
}

// EstimateAll returns the summed estimate across texts.
func EstimateAll(texts []string) int {
	total := 0
	for _, t := range texts {
		total += Estimate(t)
	}
	return total
}

func isDense(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
