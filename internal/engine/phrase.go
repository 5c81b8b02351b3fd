package engine

import (
	"sort"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// phraseScorer matches documents containing the terms at consecutive
// positions. It aligns the term cursors with a conjunction and verifies
// positions on each aligned document. The phrase frequency feeds BM25 with
// the summed idf of the terms, the way a sloppy phrase weight would.
type phraseScorer struct {
	conj    *conjunctionScorer
	cursors []*postingsCursor
	field   string
	idf     float64
	avgLen  float64
	seg     *index.Segment
	boost   float64
	freq    uint32
}

func newPhraseScorer(seg *index.Segment, field string, terms []string, boost float64) Scorer {
	cursors := make([]*postingsCursor, len(terms))
	children := make([]Scorer, len(terms))
	var idfSum float64
	for i, term := range terms {
		p := seg.Postings(field, term)
		if p == nil {
			return noMatchScorer{}
		}
		cursors[i] = newPostingsCursor(p)
		children[i] = constScorer{cursors[i], 0}
		idfSum += segmentStats(seg, field, term).idf()
	}
	if len(cursors) == 1 {
		return newTermScorer(seg, field, terms[0], boost)
	}
	return &phraseScorer{
		conj:    newConjunctionScorer(children),
		cursors: cursors,
		field:   field,
		idf:     idfSum,
		avgLen:  seg.AvgFieldLen(field),
		seg:     seg,
		boost:   boost,
	}
}

func (p *phraseScorer) Next() bool {
	for p.conj.Next() {
		if p.freq = p.phraseFreq(); p.freq > 0 {
			return true
		}
	}
	return false
}

func (p *phraseScorer) DocID() uint32 { return p.conj.DocID() }

func (p *phraseScorer) Advance(target uint32) bool {
	if !p.conj.Advance(target) {
		return false
	}
	for {
		if p.freq = p.phraseFreq(); p.freq > 0 {
			return true
		}
		if !p.conj.Next() {
			return false
		}
	}
}

func (p *phraseScorer) Cost() int64 { return p.conj.Cost() }

func (p *phraseScorer) Score() float64 {
	docLen := p.seg.DocLen(p.field, p.DocID())
	return p.boost * bm25Score(p.idf, p.freq, docLen, p.avgLen)
}

// phraseFreq counts start positions where term i appears at start+i for
// every term. Each cursor is aligned on the current document.
func (p *phraseScorer) phraseFreq() uint32 {
	var freq uint32
	for _, start := range p.cursors[0].Positions() {
		ok := true
		for i := 1; i < len(p.cursors); i++ {
			want := start + uint32(i)
			positions := p.cursors[i].Positions()
			j := sort.Search(len(positions), func(k int) bool { return positions[k] >= want })
			if j == len(positions) || positions[j] != want {
				ok = false
				break
			}
		}
		if ok {
			freq++
		}
	}
	return freq
}

// rangeScorer matches documents whose numeric doc value falls inside the
// bounds. Matching is a filter, so the score is the boost.
type rangeScorer struct {
	values []float64
	exists []bool
	doc    int64
	count  int64
	q      *query.Range
	boost  float64
}

func newRangeScorer(seg *index.Segment, q *query.Range, boost float64) Scorer {
	values, exists := seg.NumericValues(q.Field)
	if values == nil {
		return noMatchScorer{}
	}
	return &rangeScorer{
		values: values,
		exists: exists,
		doc:    -1,
		count:  int64(seg.DocCount()),
		q:      q,
		boost:  boost * orOne(q.Boost),
	}
}

func (r *rangeScorer) Next() bool { return r.Advance(uint32(r.doc + 1)) }

func (r *rangeScorer) DocID() uint32 { return uint32(r.doc) }

func (r *rangeScorer) Advance(target uint32) bool {
	if r.doc >= 0 && r.doc < r.count && int64(target) <= r.doc {
		return true
	}
	for d := int64(target); d < r.count; d++ {
		if int(d) < len(r.exists) && r.exists[d] && r.inBounds(r.values[d]) {
			r.doc = d
			return true
		}
	}
	r.doc = r.count
	return false
}

func (r *rangeScorer) Cost() int64 {
	remaining := r.count - r.doc - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *rangeScorer) Score() float64 { return r.boost }

func (r *rangeScorer) inBounds(v float64) bool {
	if r.q.GT != nil && !(v > *r.q.GT) {
		return false
	}
	if r.q.GTE != nil && !(v >= *r.q.GTE) {
		return false
	}
	if r.q.LT != nil && !(v < *r.q.LT) {
		return false
	}
	if r.q.LTE != nil && !(v <= *r.q.LTE) {
		return false
	}
	return true
}
