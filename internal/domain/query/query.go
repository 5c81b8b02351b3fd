// Package query defines the query AST, its JSON form, and the rewrite rules
// applied before execution.
package query

// Kind identifies the type of a query node.
type Kind int

// Query node kinds.
const (
	KindTerm Kind = iota
	KindMatch
	KindBool
	KindPrefix
	KindPhrase
	KindRange
	KindMatchAll
	KindMatchNone
	KindConstantScore
)

// Query is a node in the query AST.
type Query interface {
	Kind() Kind
}

// Structural limits enforced during decoding and rewrite.
const (
	MaxDepth          = 10
	MaxPrefixLength   = 256
	MaxPhraseTerms    = 50
	MaxTermsExpanded  = 1024
	DefaultMaxClauses = 1024
)

// Occur is the role of a clause inside a boolean query.
type Occur int

// Boolean occurs. Filter matches like Must but never contributes to scoring.
const (
	OccurMust Occur = iota
	OccurShould
	OccurMustNot
	OccurFilter
)

// Clause is a single occur-tagged clause of a Bool query.
type Clause struct {
	Occur Occur
	Query Query
}

// Term matches documents containing the exact term in a field.
type Term struct {
	Field string
	Value string
	Boost float64
}

func (*Term) Kind() Kind { return KindTerm }

// Match analyzes the input text and matches any resulting term (OR) or all
// of them (AND) in a field.
type Match struct {
	Field    string
	Text     string
	Operator string // "or" (default) or "and"
	Boost    float64
}

func (*Match) Kind() Kind { return KindMatch }

// Bool combines clauses with must/should/must_not/filter semantics.
type Bool struct {
	Clauses            []Clause
	MinimumShouldMatch int
}

func (*Bool) Kind() Kind { return KindBool }

// Prefix matches any term starting with the given prefix.
type Prefix struct {
	Field string
	Value string
	Boost float64
}

func (*Prefix) Kind() Kind { return KindPrefix }

// Phrase matches documents where the terms appear in exact sequence.
type Phrase struct {
	Field string
	Terms []string
	Boost float64
}

func (*Phrase) Kind() Kind { return KindPhrase }

// Range matches documents whose numeric field value falls in the bounds.
type Range struct {
	Field string
	GT    *float64
	GTE   *float64
	LT    *float64
	LTE   *float64
	Boost float64
}

func (*Range) Kind() Kind { return KindRange }

// MatchAll matches every live document.
type MatchAll struct {
	Boost float64
}

func (*MatchAll) Kind() Kind { return KindMatchAll }

// MatchNone matches nothing.
type MatchNone struct{}

func (*MatchNone) Kind() Kind { return KindMatchNone }

// ConstantScore matches like its filter but scores every hit with Boost.
type ConstantScore struct {
	Filter Query
	Boost  float64
}

func (*ConstantScore) Kind() Kind { return KindConstantScore }

// CountClauses returns the number of leaf clauses in the query tree.
func CountClauses(q Query) int {
	switch v := q.(type) {
	case *Bool:
		n := 0
		for _, c := range v.Clauses {
			n += CountClauses(c.Query)
		}
		return n
	case *ConstantScore:
		return CountClauses(v.Filter)
	default:
		return 1
	}
}
