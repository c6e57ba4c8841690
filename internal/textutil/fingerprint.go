package textutil

import (
	"math"
	"strings"
	"unicode"
)

// stopwords carry no topic signal in headline-style text.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "your": {}, "you": {},
	"how": {}, "why": {}, "what": {}, "are": {}, "from": {}, "into": {},
	"that": {}, "this": {}, "its": {}, "our": {}, "can": {},
}

// Fingerprint is a term-frequency vector over a topic's significant words.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint returns nil when text has no significant tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	fp := &Fingerprint{tokens: make(map[string]float64, len(tokens))}
	for _, token := range tokens {
		fp.tokens[token]++
	}
	var sum float64
	for _, count := range fp.tokens {
		sum += count * count
	}
	fp.norm = math.Sqrt(sum)
	return fp
}

// Tokenize lowercases and accent-folds text, splits it on anything that is not
// a letter or digit, and drops stopwords and tokens shorter than 3 runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(foldAccents(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, token := range fields {
		if len([]rune(token)) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
