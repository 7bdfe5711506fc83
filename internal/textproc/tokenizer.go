// Package textproc implements the deterministic tokenizer shared by
// indexing and querying, so the same text always yields the same tokens.
package textproc

import (
	"strings"
	"unicode"
)

// stopWords is the closed English stop-word set. Fixed by the glossary;
// do not add words ad hoc.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "to": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"for": {}, "with": {}, "by": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "so": {}, "not": {}, "no": {}, "do": {}, "does": {},
	"did": {}, "have": {}, "has": {}, "had": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {}, "her": {},
	"us": {}, "them": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// Tokenize lowercases text, splits on non-alphanumeric Unicode boundaries,
// and drops short tokens and stop words. It is deterministic: the same
// input always yields the same output, for both indexing and querying.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})

	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, isStop := stopWords[tok]; isStop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// IsStopWord reports whether word is in the closed stop-word set.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}
