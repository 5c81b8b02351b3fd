package analysis

import "strings"

// WhitespaceAnalyzer splits text on whitespace, preserving case.
type WhitespaceAnalyzer struct{}

// NewWhitespaceAnalyzer creates a WhitespaceAnalyzer.
func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{}
}

// Analyze splits the input on whitespace without normalization.
func (a *WhitespaceAnalyzer) Analyze(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))

	pos := 0
	searchFrom := 0
	for _, f := range fields {
		idx := strings.Index(text[searchFrom:], f)
		start := searchFrom + idx
		end := start + len(f)

		tokens = append(tokens, Token{Term: f, Position: pos, Start: start, End: end})
		pos++
		searchFrom = end
	}

	return tokens
}

// KeywordAnalyzer emits the entire input as a single untokenized term.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a KeywordAnalyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Analyze returns the whole input as one token.
func (a *KeywordAnalyzer) Analyze(text string) []Token {
	if text == "" {
		return nil
	}
	return []Token{{Term: text, Position: 0, Start: 0, End: len(text)}}
}
