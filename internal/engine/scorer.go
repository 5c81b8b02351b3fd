package engine

import (
	"fmt"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// termScorer scores one term's postings with BM25.
type termScorer struct {
	*postingsCursor
	field   string
	idf     float64
	avgLen  float64
	docLens func(doc uint32) uint32
	boost   float64
}

func newTermScorer(seg *index.Segment, field, term string, boost float64) Scorer {
	p := seg.Postings(field, term)
	if p == nil {
		return noMatchScorer{}
	}
	stats := segmentStats(seg, field, term)
	return &termScorer{
		postingsCursor: newPostingsCursor(p),
		field:          field,
		idf:            stats.idf(),
		avgLen:         stats.avgFieldLen,
		docLens:        func(doc uint32) uint32 { return seg.DocLen(field, doc) },
		boost:          boost,
	}
}

func (t *termScorer) Score() float64 {
	return t.boost * bm25Score(t.idf, t.Freq(), t.docLens(t.DocID()), t.avgLen)
}

// constScorer gives every matched document the same score.
type constScorer struct {
	PostingsIterator
	score float64
}

func (c constScorer) Score() float64 { return c.score }

// noMatchScorer matches nothing.
type noMatchScorer struct {
	emptyIterator
}

func (noMatchScorer) Score() float64 { return 0 }

// buildScorer compiles a rewritten query into a scorer over one segment.
// Prefix queries must have been expanded before this point.
func buildScorer(q query.Query, seg *index.Segment, boost float64) (Scorer, error) {
	switch v := q.(type) {
	case *query.Term:
		return newTermScorer(seg, v.Field, v.Value, boost*orOne(v.Boost)), nil
	case *query.Phrase:
		return newPhraseScorer(seg, v.Field, v.Terms, boost*orOne(v.Boost)), nil
	case *query.Range:
		return newRangeScorer(seg, v, boost), nil
	case *query.MatchAll:
		return constScorer{newAllDocsIterator(seg.DocCount()), boost * orOne(v.Boost)}, nil
	case *query.MatchNone:
		return noMatchScorer{}, nil
	case *query.ConstantScore:
		inner, err := buildScorer(v.Filter, seg, 1)
		if err != nil {
			return nil, err
		}
		return constScorer{inner, boost * orOne(v.Boost)}, nil
	case *query.Bool:
		return buildBoolScorer(v, seg, boost)
	default:
		return nil, fmt.Errorf("%w: unexecutable query kind %q", domain.ErrInvalidQuery, q.Kind())
	}
}

func buildBoolScorer(b *query.Bool, seg *index.Segment, boost float64) (Scorer, error) {
	var required, optional []Scorer
	var prohibited []Scorer

	for _, cl := range b.Clauses {
		sc, err := buildScorer(cl.Query, seg, boost)
		if err != nil {
			return nil, err
		}
		switch cl.Occur {
		case query.OccurMust:
			required = append(required, sc)
		case query.OccurFilter:
			required = append(required, constScorer{sc, 0})
		case query.OccurShould:
			optional = append(optional, sc)
		case query.OccurMustNot:
			prohibited = append(prohibited, sc)
		}
	}

	minShould := b.MinimumShouldMatch
	if len(required) == 0 && minShould < 1 {
		minShould = 1
	}

	var lead Scorer
	switch {
	case len(required) > 0 && len(optional) > 0:
		lead = newBoolLead(required, optional, minShould)
	case len(required) > 0:
		if len(required) == 1 {
			lead = required[0]
		} else {
			lead = newConjunctionScorer(required)
		}
	case len(optional) > 0:
		if len(optional) == 1 && minShould <= 1 {
			lead = optional[0]
		} else {
			lead = newDisjunctionScorer(optional, minShould)
		}
	default:
		return noMatchScorer{}, nil
	}

	if len(prohibited) == 0 {
		return lead, nil
	}
	var excl PostingsIterator
	if len(prohibited) == 1 {
		excl = prohibited[0]
	} else {
		excl = newDisjunctionScorer(prohibited, 1)
	}
	return newExclusionScorer(lead, excl), nil
}

// boolLead iterates the conjunction of required clauses and adds the scores
// of any optional clauses that match the same document, enforcing the
// minimum should match count.
type boolLead struct {
	required  Scorer
	optional  []Scorer
	optDone   []bool
	minShould int
}

func newBoolLead(required, optional []Scorer, minShould int) *boolLead {
	var req Scorer
	if len(required) == 1 {
		req = required[0]
	} else {
		req = newConjunctionScorer(required)
	}
	return &boolLead{
		required:  req,
		optional:  optional,
		optDone:   make([]bool, len(optional)),
		minShould: minShould,
	}
}

func (b *boolLead) Next() bool {
	for b.required.Next() {
		if b.matchedOptional(b.required.DocID()) >= b.minShould {
			return true
		}
	}
	return false
}

func (b *boolLead) DocID() uint32 { return b.required.DocID() }

func (b *boolLead) Advance(target uint32) bool {
	if !b.required.Advance(target) {
		return false
	}
	for b.matchedOptional(b.required.DocID()) < b.minShould {
		if !b.required.Next() {
			return false
		}
	}
	return true
}

func (b *boolLead) Cost() int64 { return b.required.Cost() }

func (b *boolLead) Score() float64 {
	doc := b.required.DocID()
	sum := b.required.Score()
	for i, opt := range b.optional {
		if !b.optDone[i] && opt.DocID() == doc {
			sum += opt.Score()
		}
	}
	return sum
}

func (b *boolLead) matchedOptional(doc uint32) int {
	n := 0
	for i, opt := range b.optional {
		if b.optDone[i] {
			continue
		}
		if !opt.Advance(doc) {
			b.optDone[i] = true
			continue
		}
		if opt.DocID() == doc {
			n++
		}
	}
	return n
}

func orOne(boost float64) float64 {
	if boost == 0 {
		return 1
	}
	return boost
}
