// Package analysis turns field text into token streams for indexing and search.
package analysis

// Token is a single term produced by an analyzer, with its position in the
// token stream and byte offsets into the original text.
type Token struct {
	Term     string
	Position int
	Start    int
	End      int
}

// Analyzer tokenizes text. Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(text string) []Token
}
