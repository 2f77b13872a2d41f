// Package ranking implements the scoring function and candidate-set
// pipeline of the Ranking & Search Engine (§4.3).
package ranking

import (
	"strings"
	"unicode"
)

// TokenizeWords lowercases s and splits on any run of characters that
// are neither letters nor digits (Unicode-aware, so latin-1 diacritics
// like "café" tokenize as a single word), keeping tokens of at least
// minLen runes.
func TokenizeWords(s string, minLen int) []string {
	lower := strings.ToLower(s)
	var tokens []string
	var current []rune
	flush := func() {
		if len(current) >= minLen {
			tokens = append(tokens, string(current))
		}
		current = current[:0]
	}
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TokenizeIntentWords splits on '.', '_', '-', and whitespace, keeping
// tokens of length >= 3 — the tokenizer used by the intent trigram
// score (§4.3).
func TokenizeIntentWords(s string) []string {
	lower := strings.ToLower(s)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
	})
	var tokens []string
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// charTrigrams returns the set of 3-character sliding windows of s,
// padded with a leading and trailing space, per §4.3.
func charTrigrams(s string) map[string]struct{} {
	padded := []rune(" " + s + " ")
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(padded); i++ {
		set[string(padded[i:i+3])] = struct{}{}
	}
	return set
}
