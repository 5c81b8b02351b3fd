package engine

import (
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// matcher tests whether a document matches a filter. Documents must be
// offered in ascending order within a segment.
type matcher func(doc uint32) bool

// filterAdapter turns a filter query into per-segment document matchers,
// answering whole-segment counts from index statistics when the filter
// shape allows it.
type filterAdapter struct {
	q query.Query
}

func newFilterAdapter(q query.Query) *filterAdapter {
	return &filterAdapter{q: q}
}

// count returns the number of documents in the view matching the filter,
// or -1 when it cannot be answered without iterating.
func (a *filterAdapter) count(view index.SegmentView) int {
	return shortcutCount(a.q, view)
}

// matcher builds a per-segment matcher backed by the filter's scorer.
func (a *filterAdapter) matcher(view index.SegmentView) (matcher, error) {
	sc, err := buildScorer(a.q, view.Seg, 1)
	if err != nil {
		return nil, err
	}
	exhausted := false
	return func(doc uint32) bool {
		if exhausted {
			return false
		}
		if !sc.Advance(doc) {
			exhausted = true
			return false
		}
		return sc.DocID() == doc
	}, nil
}

// shortcutCount answers a query's hit count in a segment view from index
// statistics. Returns -1 when the count requires iterating documents,
// which is always the case once the view carries deletions.
func shortcutCount(q query.Query, view index.SegmentView) int {
	switch v := q.(type) {
	case *query.MatchAll:
		return view.LiveCount()
	case *query.MatchNone:
		return 0
	case *query.Term:
		if view.HasDeletions() {
			return -1
		}
		return view.Seg.DocFreq(v.Field, v.Value)
	case *query.ConstantScore:
		return shortcutCount(v.Filter, view)
	case *query.Bool:
		// A single required clause with no side conditions counts like the
		// clause itself.
		if v.MinimumShouldMatch > 0 || len(v.Clauses) != 1 {
			return -1
		}
		cl := v.Clauses[0]
		if cl.Occur == query.OccurMust || cl.Occur == query.OccurFilter {
			return shortcutCount(cl.Query, view)
		}
		return -1
	default:
		return -1
	}
}
