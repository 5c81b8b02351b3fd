package engine

import (
	"fmt"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// expandQuery resolves prefix queries against the snapshot's term
// dictionaries, turning each into a constant-score disjunction of the
// matching terms. Expansion is bounded and checks for cancellation, since
// a short prefix over a large dictionary can visit many terms.
func expandQuery(q query.Query, snap *index.Snapshot, checker *cancelChecker, maxTerms int) (query.Query, error) {
	switch v := q.(type) {
	case *query.Prefix:
		return expandPrefix(v, snap, checker, maxTerms)
	case *query.Bool:
		clauses := make([]query.Clause, len(v.Clauses))
		for i, cl := range v.Clauses {
			inner, err := expandQuery(cl.Query, snap, checker, maxTerms)
			if err != nil {
				return nil, err
			}
			clauses[i] = query.Clause{Occur: cl.Occur, Query: inner}
		}
		return &query.Bool{Clauses: clauses, MinimumShouldMatch: v.MinimumShouldMatch}, nil
	case *query.ConstantScore:
		inner, err := expandQuery(v.Filter, snap, checker, maxTerms)
		if err != nil {
			return nil, err
		}
		return &query.ConstantScore{Filter: inner, Boost: v.Boost}, nil
	default:
		return q, nil
	}
}

func expandPrefix(p *query.Prefix, snap *index.Snapshot, checker *cancelChecker, maxTerms int) (query.Query, error) {
	seen := make(map[string]bool)
	for _, view := range snap.Segments {
		err := view.Seg.TermsWithPrefix(p.Field, p.Value, func(term string) error {
			if err := checker.checkNow(); err != nil {
				return err
			}
			if !seen[term] {
				seen[term] = true
				if len(seen) > maxTerms {
					return fmt.Errorf("%w: prefix %q expands to more than %d terms",
						domain.ErrTooManyClauses, p.Value, maxTerms)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(seen) == 0 {
		return &query.MatchNone{}, nil
	}

	clauses := make([]query.Clause, 0, len(seen))
	for term := range seen {
		clauses = append(clauses, query.Clause{
			Occur: query.OccurShould,
			Query: &query.Term{Field: p.Field, Value: term},
		})
	}
	return &query.ConstantScore{
		Filter: &query.Bool{Clauses: clauses},
		Boost:  p.Boost,
	}, nil
}
