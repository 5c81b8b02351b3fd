package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/textdex-cloud/textdex/internal/domain"
)

// Decode parses the JSON query DSL into a query AST.
// Each node is a single-key object naming the query type.
func Decode(raw json.RawMessage) (Query, error) {
	if len(raw) == 0 {
		return &MatchAll{}, nil
	}
	return decodeNode(raw, 0)
}

func decodeNode(raw json.RawMessage, depth int) (Query, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: query exceeds max depth %d", domain.ErrInvalidQuery, MaxDepth)
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	if len(node) != 1 {
		return nil, fmt.Errorf("%w: query node must have exactly one key, got %d", domain.ErrInvalidQuery, len(node))
	}

	for name, body := range node {
		q, err := decodeTyped(name, body, depth)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, domain.ErrInvalidQuery
}

func decodeTyped(name string, body json.RawMessage, depth int) (Query, error) {
	switch name {
	case "term":
		var v struct {
			Field string  `json:"field"`
			Value string  `json:"value"`
			Boost float64 `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: term: %v", domain.ErrInvalidQuery, err)
		}
		if v.Field == "" || v.Value == "" {
			return nil, fmt.Errorf("%w: term query requires field and value", domain.ErrInvalidQuery)
		}
		return &Term{Field: v.Field, Value: v.Value, Boost: v.Boost}, nil

	case "match":
		var v struct {
			Field    string  `json:"field"`
			Query    string  `json:"query"`
			Operator string  `json:"operator"`
			Boost    float64 `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: match: %v", domain.ErrInvalidQuery, err)
		}
		if v.Field == "" || v.Query == "" {
			return nil, fmt.Errorf("%w: match query requires field and query", domain.ErrInvalidQuery)
		}
		switch v.Operator {
		case "", "or", "and":
		default:
			return nil, fmt.Errorf("%w: match operator must be \"or\" or \"and\", got %q", domain.ErrInvalidQuery, v.Operator)
		}
		return &Match{Field: v.Field, Text: v.Query, Operator: v.Operator, Boost: v.Boost}, nil

	case "bool":
		return decodeBool(body, depth)

	case "prefix":
		var v struct {
			Field string  `json:"field"`
			Value string  `json:"value"`
			Boost float64 `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: prefix: %v", domain.ErrInvalidQuery, err)
		}
		if v.Field == "" || v.Value == "" {
			return nil, fmt.Errorf("%w: prefix query requires field and value", domain.ErrInvalidQuery)
		}
		if len(v.Value) > MaxPrefixLength {
			return nil, fmt.Errorf("%w: prefix longer than %d bytes", domain.ErrInvalidQuery, MaxPrefixLength)
		}
		return &Prefix{Field: v.Field, Value: v.Value, Boost: v.Boost}, nil

	case "phrase":
		var v struct {
			Field string  `json:"field"`
			Query string  `json:"query"`
			Boost float64 `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: phrase: %v", domain.ErrInvalidQuery, err)
		}
		if v.Field == "" || v.Query == "" {
			return nil, fmt.Errorf("%w: phrase query requires field and query", domain.ErrInvalidQuery)
		}
		terms := splitPhrase(v.Query)
		if len(terms) > MaxPhraseTerms {
			return nil, fmt.Errorf("%w: phrase longer than %d terms", domain.ErrInvalidQuery, MaxPhraseTerms)
		}
		return &Phrase{Field: v.Field, Terms: terms, Boost: v.Boost}, nil

	case "range":
		var v struct {
			Field string   `json:"field"`
			GT    *float64 `json:"gt"`
			GTE   *float64 `json:"gte"`
			LT    *float64 `json:"lt"`
			LTE   *float64 `json:"lte"`
			Boost float64  `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: range: %v", domain.ErrInvalidQuery, err)
		}
		if v.Field == "" {
			return nil, fmt.Errorf("%w: range query requires field", domain.ErrInvalidQuery)
		}
		if v.GT == nil && v.GTE == nil && v.LT == nil && v.LTE == nil {
			return nil, fmt.Errorf("%w: range query requires at least one bound", domain.ErrInvalidQuery)
		}
		if v.GT != nil && v.GTE != nil {
			return nil, fmt.Errorf("%w: range cannot specify both gt and gte", domain.ErrInvalidQuery)
		}
		if v.LT != nil && v.LTE != nil {
			return nil, fmt.Errorf("%w: range cannot specify both lt and lte", domain.ErrInvalidQuery)
		}
		return &Range{Field: v.Field, GT: v.GT, GTE: v.GTE, LT: v.LT, LTE: v.LTE, Boost: v.Boost}, nil

	case "match_all":
		var v struct {
			Boost float64 `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: match_all: %v", domain.ErrInvalidQuery, err)
		}
		return &MatchAll{Boost: v.Boost}, nil

	case "match_none":
		return &MatchNone{}, nil

	case "constant_score":
		var v struct {
			Filter json.RawMessage `json:"filter"`
			Boost  float64         `json:"boost"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: constant_score: %v", domain.ErrInvalidQuery, err)
		}
		if len(v.Filter) == 0 {
			return nil, fmt.Errorf("%w: constant_score requires filter", domain.ErrInvalidQuery)
		}
		filter, err := decodeNode(v.Filter, depth+1)
		if err != nil {
			return nil, err
		}
		return &ConstantScore{Filter: filter, Boost: v.Boost}, nil

	default:
		return nil, fmt.Errorf("%w: unknown query type %q", domain.ErrInvalidQuery, name)
	}
}

func decodeBool(body json.RawMessage, depth int) (Query, error) {
	var v struct {
		Must               []json.RawMessage `json:"must"`
		Should             []json.RawMessage `json:"should"`
		MustNot            []json.RawMessage `json:"must_not"`
		Filter             []json.RawMessage `json:"filter"`
		MinimumShouldMatch int               `json:"minimum_should_match"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: bool: %v", domain.ErrInvalidQuery, err)
	}

	var clauses []Clause
	groups := []struct {
		occur Occur
		raw   []json.RawMessage
	}{
		{OccurMust, v.Must},
		{OccurShould, v.Should},
		{OccurMustNot, v.MustNot},
		{OccurFilter, v.Filter},
	}
	for _, g := range groups {
		for _, raw := range g.raw {
			q, err := decodeNode(raw, depth+1)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, Clause{Occur: g.occur, Query: q})
		}
	}

	if v.MinimumShouldMatch < 0 {
		return nil, fmt.Errorf("%w: minimum_should_match must not be negative", domain.ErrInvalidQuery)
	}

	return &Bool{Clauses: clauses, MinimumShouldMatch: v.MinimumShouldMatch}, nil
}

// splitPhrase breaks phrase text on whitespace; the search service runs the
// pieces through the target field's analyzer before execution.
func splitPhrase(text string) []string {
	return strings.Fields(text)
}
