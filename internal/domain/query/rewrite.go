package query

// Rewrite applies AST-level simplifications until a fixed point is reached.
// Rules: match expands to term clauses, nested booleans with a single occur
// flatten into their parent, match_all drops out of must, match_none
// short-circuits must, and single-must booleans unwrap.
// Snapshot-dependent expansion (prefix to terms) happens in the engine,
// where the term dictionary and the cancellation checker are available.
func Rewrite(q Query) Query {
	for {
		rewritten := rewriteOnce(q)
		if equal(rewritten, q) {
			return rewritten
		}
		q = rewritten
	}
}

func rewriteOnce(q Query) Query {
	switch v := q.(type) {
	case *Match:
		return rewriteMatch(v)
	case *Bool:
		return rewriteBool(v)
	case *ConstantScore:
		inner := rewriteOnce(v.Filter)
		if _, none := inner.(*MatchNone); none {
			return &MatchNone{}
		}
		return &ConstantScore{Filter: inner, Boost: v.Boost}
	default:
		return q
	}
}

// rewriteMatch expands a match query into term clauses. The operator decides
// whether terms are required (and) or alternatives (or).
func rewriteMatch(m *Match) Query {
	terms := splitPhrase(m.Text)
	if len(terms) == 0 {
		return &MatchNone{}
	}
	if len(terms) == 1 {
		return &Term{Field: m.Field, Value: terms[0], Boost: m.Boost}
	}

	occur := OccurShould
	if m.Operator == "and" {
		occur = OccurMust
	}
	clauses := make([]Clause, len(terms))
	for i, t := range terms {
		clauses[i] = Clause{Occur: occur, Query: &Term{Field: m.Field, Value: t, Boost: m.Boost}}
	}
	minShould := 0
	if occur == OccurShould {
		minShould = 1
	}
	return &Bool{Clauses: clauses, MinimumShouldMatch: minShould}
}

func rewriteBool(q *Bool) Query {
	clauses := make([]Clause, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		rewritten := rewriteOnce(c.Query)

		if inner, ok := rewritten.(*Bool); ok && canFlatten(c.Occur, inner) {
			for _, ic := range inner.Clauses {
				clauses = append(clauses, Clause{Occur: c.Occur, Query: ic.Query})
			}
			continue
		}

		clauses = append(clauses, Clause{Occur: c.Occur, Query: rewritten})
	}

	// match_all adds nothing as a required clause; match_none poisons it.
	filtered := make([]Clause, 0, len(clauses))
	hadRequired := false
	for _, c := range clauses {
		switch c.Occur {
		case OccurMust, OccurFilter:
			hadRequired = true
			if _, all := c.Query.(*MatchAll); all {
				continue
			}
			if _, none := c.Query.(*MatchNone); none {
				return &MatchNone{}
			}
		case OccurMustNot:
			// NOT match_none is a no-op; NOT match_all matches nothing.
			if _, none := c.Query.(*MatchNone); none {
				continue
			}
			if _, all := c.Query.(*MatchAll); all {
				return &MatchNone{}
			}
		case OccurShould:
		}
		filtered = append(filtered, c)
	}

	if hadRequired && len(filtered) == 0 {
		return &MatchAll{}
	}

	if len(filtered) == 1 && filtered[0].Occur == OccurMust {
		return filtered[0].Query
	}

	return &Bool{Clauses: filtered, MinimumShouldMatch: q.MinimumShouldMatch}
}

// canFlatten reports whether every clause of the inner boolean carries the
// same occur as the outer clause, so flattening preserves semantics.
// minimum_should_match blocks flattening of should groups.
func canFlatten(outer Occur, inner *Bool) bool {
	if outer == OccurMustNot {
		return false
	}
	if outer == OccurShould && inner.MinimumShouldMatch > 1 {
		return false
	}
	for _, c := range inner.Clauses {
		if c.Occur != outer {
			return false
		}
	}
	return true
}

// equal checks structural equality for fixed-point detection.
func equal(a, b Query) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Bool:
		bv := b.(*Bool)
		if len(av.Clauses) != len(bv.Clauses) || av.MinimumShouldMatch != bv.MinimumShouldMatch {
			return false
		}
		for i := range av.Clauses {
			if av.Clauses[i].Occur != bv.Clauses[i].Occur {
				return false
			}
			if !equal(av.Clauses[i].Query, bv.Clauses[i].Query) {
				return false
			}
		}
		return true
	case *ConstantScore:
		return equal(av.Filter, b.(*ConstantScore).Filter)
	default:
		// Leaf nodes are never recreated by rewriteOnce, so pointer
		// equality detects the fixed point.
		return a == b
	}
}
