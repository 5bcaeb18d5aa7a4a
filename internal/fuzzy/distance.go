// Package fuzzy implements the edit-distance metrics behind typo-tolerant
// search: Levenshtein distance plus normalized similarity scores over
// tokens and token bigrams.
package fuzzy

import (
	"strings"

	"github.com/starford/perthro/internal/parser"
)

// Levenshtein returns the single-character insert/delete/substitute edit
// distance between a and b, computed over runes with a two-row DP sweep.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	// Keep the shorter string on the row axis.
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[i] = min(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// NormDistance returns a normalized distance in [0,1]: 0 for identical
// strings, 1 for entirely different ones. Inputs are trimmed and
// case-folded first. Both empty yields 0, exactly one empty yields 1.
func NormDistance(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 0.0
	}
	if a == "" || b == "" {
		return 1.0
	}
	d := Levenshtein(a, b)
	la, lb := len([]rune(a)), len([]rune(b))
	return float64(d) / float64(max(la, lb))
}

// NormSim is the similarity complement of NormDistance: 1 for identical.
func NormSim(a, b string) float64 {
	return 1.0 - NormDistance(a, b)
}

// MinTokenDistance returns the smallest NormDistance over the full cross
// product of query tokens and text tokens, or 1.0 when either side is
// empty (no match possible).
func MinTokenDistance(queryTokens, textTokens []string) float64 {
	if len(queryTokens) == 0 || len(textTokens) == 0 {
		return 1.0
	}
	best := 1.0
	for _, q := range queryTokens {
		for _, t := range textTokens {
			if d := NormDistance(q, t); d < best {
				best = d
			}
		}
	}
	return best
}

// BestTokenSim compares a query phrase against every token and every
// adjacent token bigram of text, returning the best NormSim. A two-word
// query can thereby match a two-word phrase buried in longer text.
// Returns 0.0 when the query, the text, or the token set is empty.
func BestTokenSim(query, text string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(text))
	if q == "" || t == "" {
		return 0.0
	}
	toks := parser.Tokenize(t)
	if len(toks) == 0 {
		return 0.0
	}
	best := 0.0
	for _, tok := range toks {
		if s := NormSim(q, tok); s > best {
			best = s
		}
	}
	for i := 0; i+1 < len(toks); i++ {
		if s := NormSim(q, toks[i]+" "+toks[i+1]); s > best {
			best = s
		}
	}
	return best
}
