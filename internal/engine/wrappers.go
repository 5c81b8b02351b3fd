package engine

import (
	"errors"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/index"
)

// earlyTerminator stops collection after a fixed number of documents have
// flowed through it, across all segments of the shard.
type earlyTerminator struct {
	inner      collector
	limit      int
	seen       int
	terminated bool
}

func newEarlyTerminator(inner collector, limit int) *earlyTerminator {
	return &earlyTerminator{inner: inner, limit: limit}
}

func (t *earlyTerminator) needsScores() bool { return t.inner.needsScores() }

func (t *earlyTerminator) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	if t.seen >= t.limit {
		t.terminated = true
		return nil, errCollectionTerminated
	}
	leaf, err := t.inner.forSegment(view, ord)
	if err != nil {
		return nil, err
	}
	return leafFunc(func(doc uint32, score float64) error {
		t.seen++
		if err := leaf.collect(doc, score); err != nil {
			return err
		}
		if t.seen >= t.limit {
			t.terminated = true
			return errCollectionTerminated
		}
		return nil
	}), nil
}

// minScoreFilter drops documents scoring below the threshold before they
// reach the rest of the chain. Totals and aggregations therefore only see
// documents at or above the threshold.
type minScoreFilter struct {
	inner collector
	min   float64
}

func newMinScoreFilter(inner collector, min float64) *minScoreFilter {
	return &minScoreFilter{inner: inner, min: min}
}

func (m *minScoreFilter) needsScores() bool { return true }

func (m *minScoreFilter) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	leaf, err := m.inner.forSegment(view, ord)
	if err != nil {
		return nil, err
	}
	return leafFunc(func(doc uint32, score float64) error {
		if score < m.min {
			return nil
		}
		return leaf.collect(doc, score)
	}), nil
}

// postFilter drops documents that do not match the filter query. It wraps
// only the hit collector, not aggregations, so aggregations keep seeing
// the full query scope.
type postFilter struct {
	inner  collector
	filter query.Query
}

func newPostFilter(inner collector, filter query.Query) *postFilter {
	return &postFilter{inner: inner, filter: filter}
}

func (p *postFilter) needsScores() bool { return p.inner.needsScores() }

func (p *postFilter) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	leaf, err := p.inner.forSegment(view, ord)
	if err != nil {
		return nil, err
	}
	matcher, err := buildScorer(p.filter, view.Seg, 1)
	if err != nil {
		return nil, err
	}
	exhausted := false
	return leafFunc(func(doc uint32, score float64) error {
		if exhausted {
			return nil
		}
		if !matcher.Advance(doc) {
			exhausted = true
			return nil
		}
		if matcher.DocID() != doc {
			return nil
		}
		return leaf.collect(doc, score)
	}), nil
}

// multiCollector fans documents out to several collectors. A child that
// terminates a segment or the whole collection is dropped while the others
// keep collecting; the composite only terminates when every child has.
type multiCollector struct {
	children []collector
	done     []bool
}

func newMultiCollector(children ...collector) *multiCollector {
	return &multiCollector{children: children, done: make([]bool, len(children))}
}

func (m *multiCollector) needsScores() bool {
	for _, c := range m.children {
		if c.needsScores() {
			return true
		}
	}
	return false
}

func (m *multiCollector) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	leaves := make([]leafCollector, len(m.children))
	active := make([]bool, len(m.children))
	anyActive := false
	for i, c := range m.children {
		if m.done[i] {
			continue
		}
		leaf, err := c.forSegment(view, ord)
		switch {
		case errors.Is(err, errSegmentTerminated):
			continue
		case errors.Is(err, errCollectionTerminated):
			m.done[i] = true
			continue
		case err != nil:
			return nil, err
		}
		leaves[i] = leaf
		active[i] = true
		anyActive = true
	}
	if !anyActive {
		if m.allDone() {
			return nil, errCollectionTerminated
		}
		return nil, errSegmentTerminated
	}
	return leafFunc(func(doc uint32, score float64) error {
		anyLeft := false
		for i, leaf := range leaves {
			if !active[i] {
				continue
			}
			err := leaf.collect(doc, score)
			switch {
			case errors.Is(err, errSegmentTerminated):
				active[i] = false
			case errors.Is(err, errCollectionTerminated):
				active[i] = false
				m.done[i] = true
			case err != nil:
				return err
			default:
				anyLeft = true
			}
		}
		if !anyLeft {
			if m.allDone() {
				return errCollectionTerminated
			}
			return errSegmentTerminated
		}
		return nil
	}), nil
}

func (m *multiCollector) allDone() bool {
	for _, d := range m.done {
		if !d {
			return false
		}
	}
	return true
}
