// Package parser extracts tags and particle references from body text and
// provides the query normalization and tokenization used by search.
package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	// A tag must start with a letter; #2025 is a numeric reference
	// candidate, not a tag.
	tagRe    = regexp.MustCompile(`#([A-Za-z][A-Za-z0-9_-]*)`)
	uuidRe   = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	numRefRe = regexp.MustCompile(`#(\d+)`)
	spaceRe  = regexp.MustCompile(`[\s\p{Z}]+`)
	tokenRe  = regexp.MustCompile(`[^a-z0-9_]+`)
)

// NormalizeQuery strips Unicode format characters (zero-width joiners and
// friends), collapses whitespace runs to a single space, and trims.
// Whitespace-only input normalizes to the empty string.
func NormalizeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(b.String(), " "))
}

// Tokenize lowercases text and splits it on any run of characters outside
// [a-z0-9_], discarding empty tokens.
func Tokenize(text string) []string {
	var out []string
	for _, tok := range tokenRe.Split(strings.ToLower(text), -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ExtractTagsAndReferences derives the structured metadata of a particle
// body. Tags are the #word tokens (letter-leading). References are the
// UUID-shaped substrings when any are present, otherwise the #123 numeric
// short references; the two classes are never combined. Both results are
// sorted and deduplicated.
func ExtractTagsAndReferences(body string) (tags, refs []string) {
	tags = sortedUnique(submatches(tagRe, body))

	uuids := uuidRe.FindAllString(body, -1)
	if len(uuids) > 0 {
		refs = sortedUnique(uuids)
		return tags, refs
	}
	refs = sortedUnique(submatches(numRefRe, body))
	return tags, refs
}

func submatches(re *regexp.Regexp, s string) []string {
	ms := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m[1])
	}
	return out
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
