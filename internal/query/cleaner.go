package query

import (
	"strings"
	"unicode"
)

// minSearchTextLen is the shortest cleaned query still sent to search;
// anything shorter falls back to the raw query.
const minSearchTextLen = 3

// stopwords contains common English words that carry no product meaning.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "and": true, "or": true,
	"but": true, "if": true, "then": true, "than": true, "so": true,
	"as": true, "at": true, "by": true, "for": true, "from": true,
	"in": true, "into": true, "of": true, "on": true, "with": true,
	"about": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "you": true, "me": true, "i": true,
	"my": true, "your": true, "we": true, "some": true, "any": true,
	"want": true, "need": true, "looking": true, "show": true, "find": true,
	"good": true, "best": true, "rs": true, "inr": true, "price": true,
}

// Cleaner normalizes query text for similarity search.
type Cleaner struct{}

// NewCleaner returns a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean lower-cases q, splits on anything that is not a letter or digit and
// drops stopwords, price cue words, bare numbers and repeated words.
func (c *Cleaner) Clean(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] || upperBoundCues[w] || isDigits(w) || seen[w] {
			continue
		}
		seen[w] = true
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// SearchText returns the cleaned query, or the raw query when cleaning
// leaves two characters or fewer.
func SearchText(c interface{ Clean(string) string }, raw string) string {
	if c == nil {
		return raw
	}
	cleaned := strings.TrimSpace(c.Clean(raw))
	if len([]rune(cleaned)) < minSearchTextLen {
		return raw
	}
	return cleaned
}
