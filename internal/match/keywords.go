// Package match maps candidates to sourcing options by keyword overlap
// against supplier catalogs.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped from keyword sets; marketplace titles are full of
// connective filler that would otherwise produce spurious matches.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "for": {},
	"with": {}, "from": {}, "into": {}, "onto": {},
	"les": {}, "des": {}, "pour": {}, "avec": {},
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Keywords normalizes free text into a keyword list: lowercased, accents
// folded, punctuation stripped, tokens shorter than 3 runes and stopwords
// dropped.
func Keywords(text string) []string {
	if text == "" {
		return nil
	}

	folded, _, err := transform.String(accentFolder, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	var keywords []string
	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// keywordSet builds a membership set from a keyword list.
func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[k] = struct{}{}
	}
	return set
}

// overlaps reports whether enough candidate keywords appear in the entry
// set: at least 2, or at least 1 when the candidate yielded 3 or fewer
// keywords in total.
func overlaps(candidateKeywords []string, entrySet map[string]struct{}) bool {
	if len(candidateKeywords) == 0 {
		return false
	}

	matches := 0
	for _, k := range candidateKeywords {
		if _, ok := entrySet[k]; ok {
			matches++
		}
	}

	minMatches := 2
	if len(candidateKeywords) <= 3 {
		minMatches = 1
	}
	return matches >= minMatches
}
