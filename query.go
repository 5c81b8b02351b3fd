package textdex

import (
	"strings"

	"github.com/textdex-cloud/textdex/internal/domain/query"
)

// Query is an opaque search query. Build one with Match, Term, Prefix,
// Phrase, Range, Bool or MatchAll.
type Query struct {
	inner query.Query
}

// MatchAll matches every document.
func MatchAll() Query {
	return Query{inner: &query.MatchAll{}}
}

// Match analyzes the text and matches documents containing any resulting
// term (OR semantics).
func Match(field, text string) Query {
	return Query{inner: &query.Match{Field: field, Text: text}}
}

// MatchAnd analyzes the text and matches documents containing every
// resulting term.
func MatchAnd(field, text string) Query {
	return Query{inner: &query.Match{Field: field, Text: text, Operator: "and"}}
}

// Term matches documents containing the exact term.
func Term(field, value string) Query {
	return Query{inner: &query.Term{Field: field, Value: value}}
}

// Prefix matches documents containing any term starting with the value.
func Prefix(field, value string) Query {
	return Query{inner: &query.Prefix{Field: field, Value: value}}
}

// Phrase matches documents containing the analyzed terms adjacently and
// in order.
func Phrase(field, text string) Query {
	return Query{inner: &query.Phrase{Field: field, Terms: strings.Fields(text)}}
}

// RangeQuery matches numeric values inside bounds. Zero-value bounds are
// open; use the builder methods to close them.
type RangeQuery struct {
	field            string
	gt, gte, lt, lte *float64
}

// Range starts a numeric range query on a field.
func Range(field string) *RangeQuery {
	return &RangeQuery{field: field}
}

// Gt bounds the range exclusively from below.
func (r *RangeQuery) Gt(v float64) *RangeQuery { r.gt = &v; return r }

// Gte bounds the range inclusively from below.
func (r *RangeQuery) Gte(v float64) *RangeQuery { r.gte = &v; return r }

// Lt bounds the range exclusively from above.
func (r *RangeQuery) Lt(v float64) *RangeQuery { r.lt = &v; return r }

// Lte bounds the range inclusively from above.
func (r *RangeQuery) Lte(v float64) *RangeQuery { r.lte = &v; return r }

// Build finalizes the range as a Query.
func (r *RangeQuery) Build() Query {
	return Query{inner: &query.Range{
		Field: r.field,
		GT:    r.gt,
		GTE:   r.gte,
		LT:    r.lt,
		LTE:   r.lte,
	}}
}

// BoolQuery combines queries with must/should/must_not/filter semantics.
type BoolQuery struct {
	clauses            []query.Clause
	minimumShouldMatch int
}

// Bool starts a boolean query.
func Bool() *BoolQuery {
	return &BoolQuery{}
}

// Must adds clauses that are required and contribute to the score.
func (b *BoolQuery) Must(qs ...Query) *BoolQuery {
	return b.add(query.OccurMust, qs)
}

// Should adds optional scoring clauses.
func (b *BoolQuery) Should(qs ...Query) *BoolQuery {
	return b.add(query.OccurShould, qs)
}

// MustNot adds excluding clauses.
func (b *BoolQuery) MustNot(qs ...Query) *BoolQuery {
	return b.add(query.OccurMustNot, qs)
}

// Filter adds required clauses that do not contribute to the score.
func (b *BoolQuery) Filter(qs ...Query) *BoolQuery {
	return b.add(query.OccurFilter, qs)
}

// MinimumShouldMatch requires at least n should clauses to match.
func (b *BoolQuery) MinimumShouldMatch(n int) *BoolQuery {
	b.minimumShouldMatch = n
	return b
}

func (b *BoolQuery) add(occur query.Occur, qs []Query) *BoolQuery {
	for _, q := range qs {
		b.clauses = append(b.clauses, query.Clause{Occur: occur, Query: q.inner})
	}
	return b
}

// Build finalizes the boolean query.
func (b *BoolQuery) Build() Query {
	return Query{inner: &query.Bool{
		Clauses:            b.clauses,
		MinimumShouldMatch: b.minimumShouldMatch,
	}}
}
