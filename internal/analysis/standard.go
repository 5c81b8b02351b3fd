package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StandardAnalyzer splits on Unicode word boundaries and lowercases terms.
type StandardAnalyzer struct{}

// NewStandardAnalyzer creates a StandardAnalyzer.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{}
}

// Analyze tokenizes using Unicode word boundary detection and lowercasing.
func (a *StandardAnalyzer) Analyze(text string) []Token {
	var tokens []Token
	pos := 0
	i := 0

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			i += size
			continue
		}

		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}

		term := strings.ToLower(text[start:i])
		if term != "" {
			tokens = append(tokens, Token{Term: term, Position: pos, Start: start, End: i})
			pos++
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
