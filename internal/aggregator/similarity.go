package aggregator

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Generic lodging words carry no identity; they are stripped before
// names are compared so "The Alpine Hotel & Spa" and "Alpine" score high.
var genericLodgingWords = map[string]struct{}{
	"hotel": {}, "hotels": {}, "resort": {}, "resorts": {}, "spa": {},
	"the": {}, "inn": {}, "lodge": {}, "suites": {}, "motel": {},
	"and": {}, "by": {}, "at": {},
}

// Score computes a normalized 0..1 similarity between two hotel names.
// It is symmetric, and reflexive for any non-empty name. The blend of
// edit distance and token overlap is an implementation detail; the 0.5
// acceptance threshold and the generic-word normalization are the
// contract.
func Score(a, b string) float64 {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		// Names made entirely of generic words still compare equal to
		// themselves.
		na = strings.ToLower(strings.TrimSpace(a))
		nb = strings.ToLower(strings.TrimSpace(b))
		if na == "" || nb == "" {
			return 0
		}
	}
	if na == nb {
		return 1
	}

	edit := editSimilarity(na, nb)
	tokens := tokenOverlap(na, nb)
	if tokens > edit {
		return tokens
	}
	return edit
}

func editSimilarity(a, b string) float64 {
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

// normalizeName lowercases, strips non-alphanumerics, and drops generic
// lodging words.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, generic := genericLodgingWords[w]; generic {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
