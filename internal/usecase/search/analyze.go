package search

import (
	"strings"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// analyzeQuery runs full-text query text through the target field's
// analyzer, so the terms the engine looks up are the terms indexing
// produced. Match and phrase queries on text fields are rewritten; term
// and prefix queries stay verbatim, as do fields of any other type.
func analyzeQuery(q query.Query, schema index.Schema, analyzers *analysis.Registry) query.Query {
	switch v := q.(type) {
	case *query.Match:
		f, ok := textField(schema, v.Field)
		if !ok {
			return q
		}
		terms := analyzeText(f, v.Text, schema, analyzers)
		if len(terms) == 0 {
			return &query.MatchNone{}
		}
		return &query.Match{Field: v.Field, Text: strings.Join(terms, " "), Operator: v.Operator, Boost: v.Boost}
	case *query.Phrase:
		f, ok := textField(schema, v.Field)
		if !ok {
			return q
		}
		out := make([]string, 0, len(v.Terms))
		for _, t := range v.Terms {
			out = append(out, analyzeText(f, t, schema, analyzers)...)
		}
		if len(out) == 0 {
			return &query.MatchNone{}
		}
		return &query.Phrase{Field: v.Field, Terms: out, Boost: v.Boost}
	case *query.Bool:
		clauses := make([]query.Clause, len(v.Clauses))
		for i, c := range v.Clauses {
			clauses[i] = query.Clause{Occur: c.Occur, Query: analyzeQuery(c.Query, schema, analyzers)}
		}
		return &query.Bool{Clauses: clauses, MinimumShouldMatch: v.MinimumShouldMatch}
	case *query.ConstantScore:
		return &query.ConstantScore{Filter: analyzeQuery(v.Filter, schema, analyzers), Boost: v.Boost}
	default:
		return q
	}
}

func textField(schema index.Schema, name string) (index.Field, bool) {
	f, ok := schema.Field(name)
	if !ok || f.Type != index.FieldTypeText {
		return index.Field{}, false
	}
	return f, true
}

func analyzeText(f index.Field, text string, schema index.Schema, analyzers *analysis.Registry) []string {
	toks := schema.AnalyzerFor(f, analyzers).Analyze(text)
	if len(toks) == 0 {
		return nil
	}
	terms := make([]string, len(toks))
	for i, tok := range toks {
		terms[i] = tok.Term
	}
	return terms
}
