package engine

import (
	"container/heap"
	"math"

	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
)

// topHit is a candidate hit held in a top docs heap.
type topHit struct {
	ord        int
	doc        uint32
	score      float64
	sortValues []float64
}

// hitHeap keeps the current top hits with the worst hit on top, so it can
// be evicted in O(log n) when a better candidate arrives.
type hitHeap struct {
	hits  []topHit
	worse func(a, b topHit) bool
}

func (h *hitHeap) Len() int           { return len(h.hits) }
func (h *hitHeap) Less(i, j int) bool { return h.worse(h.hits[i], h.hits[j]) }
func (h *hitHeap) Swap(i, j int)      { h.hits[i], h.hits[j] = h.hits[j], h.hits[i] }
func (h *hitHeap) Push(x any)         { h.hits = append(h.hits, x.(topHit)) }
func (h *hitHeap) Pop() any {
	old := h.hits
	n := len(old)
	x := old[n-1]
	h.hits = old[:n-1]
	return x
}

// totalTracker accumulates the hit total with an optional threshold. Past
// the threshold the count keeps accumulating but the relation degrades to
// a lower bound, matching what a skipping top docs collector reports.
type totalTracker struct {
	counting  bool
	threshold int64 // <0 means exact counting all the way
	total     int64
	gte       bool
}

func newTotalTracker(trackTotalHits int) totalTracker {
	t := totalTracker{counting: trackTotalHits != request.TrackTotalHitsDisabled}
	if t.counting && trackTotalHits != request.TrackTotalHitsAccurate {
		t.threshold = int64(trackTotalHits)
	} else {
		t.threshold = -1
	}
	return t
}

func (t *totalTracker) hit() {
	if !t.counting {
		return
	}
	t.total++
	if t.threshold >= 0 && t.total > t.threshold {
		t.gte = true
	}
}

func (t *totalTracker) totals() result.TotalHits {
	if !t.counting {
		return result.TotalHits{Value: 0, Relation: result.RelationEq}
	}
	rel := result.RelationEq
	if t.gte {
		rel = result.RelationGte
	}
	return result.TotalHits{Value: t.total, Relation: rel}
}

// scoreTopDocs collects the top hits by descending score.
type scoreTopDocs struct {
	numHits  int
	heap     *hitHeap
	tracker  totalTracker
	maxScore float64
	after    []float64
}

func newScoreTopDocs(numHits, trackTotalHits int, after []float64) *scoreTopDocs {
	c := &scoreTopDocs{
		numHits: numHits,
		tracker: newTotalTracker(trackTotalHits),
		after:   after,
	}
	c.heap = &hitHeap{worse: func(a, b topHit) bool {
		if a.score != b.score {
			return a.score < b.score
		}
		if a.ord != b.ord {
			return a.ord > b.ord
		}
		return a.doc > b.doc
	}}
	return c
}

func (c *scoreTopDocs) needsScores() bool { return true }

func (c *scoreTopDocs) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	return leafFunc(func(doc uint32, score float64) error {
		c.tracker.hit()
		if score > c.maxScore {
			c.maxScore = score
		}
		if len(c.after) > 0 && score >= c.after[0] {
			return nil
		}
		c.offer(topHit{ord: ord, doc: doc, score: score})
		return nil
	}), nil
}

func (c *scoreTopDocs) offer(h topHit) {
	if c.numHits == 0 {
		return
	}
	if c.heap.Len() < c.numHits {
		heap.Push(c.heap, h)
		return
	}
	if c.heap.worse(c.heap.hits[0], h) {
		c.heap.hits[0] = h
		heap.Fix(c.heap, 0)
	}
}

func (c *scoreTopDocs) topDocs() result.TopDocs {
	return result.TopDocs{
		Total:    c.tracker.totals(),
		MaxScore: c.maxScore,
		Hits:     drainHeap(c.heap),
	}
}

// fieldTopDocs collects the top hits ordered by sort keys, with support
// for search_after cursors and early termination on index-sorted segments.
type fieldTopDocs struct {
	numHits    int
	keys       []request.Sort
	scored     bool
	heap       *hitHeap
	tracker    totalTracker
	after      []float64
	terminated bool // sorted-segment early termination happened
}

func newFieldTopDocs(numHits int, keys []request.Sort, trackTotalHits int, after []float64) *fieldTopDocs {
	scored := false
	for _, k := range keys {
		if k.Field == request.ScoreField {
			scored = true
		}
	}
	c := &fieldTopDocs{
		numHits: numHits,
		keys:    keys,
		scored:  scored,
		tracker: newTotalTracker(trackTotalHits),
		after:   after,
	}
	c.heap = &hitHeap{worse: func(a, b topHit) bool {
		return c.compare(a.sortValues, b.sortValues, a, b) > 0
	}}
	return c
}

func (c *fieldTopDocs) needsScores() bool { return c.scored }

// compare orders two hits by the sort keys. Negative means a sorts before
// b. Ties fall back to segment then doc order.
func (c *fieldTopDocs) compare(av, bv []float64, a, b topHit) int {
	for i, k := range c.keys {
		x, y := av[i], bv[i]
		if x == y {
			continue
		}
		before := x < y
		if k.Desc {
			before = !before
		}
		if before {
			return -1
		}
		return 1
	}
	if a.ord != b.ord {
		if a.ord < b.ord {
			return -1
		}
		return 1
	}
	switch {
	case a.doc < b.doc:
		return -1
	case a.doc > b.doc:
		return 1
	}
	return 0
}

// compareValues orders two sort value vectors without a doc tiebreak.
func (c *fieldTopDocs) compareValues(av, bv []float64) int {
	for i, k := range c.keys {
		x, y := av[i], bv[i]
		if x == y {
			continue
		}
		before := x < y
		if k.Desc {
			before = !before
		}
		if before {
			return -1
		}
		return 1
	}
	return 0
}

func (c *fieldTopDocs) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	getters := make([]func(doc uint32, score float64) float64, len(c.keys))
	for i, k := range c.keys {
		if k.Field == request.ScoreField {
			getters[i] = func(_ uint32, score float64) float64 { return score }
			continue
		}
		values, exists := view.Seg.NumericValues(k.Field)
		missing := math.Inf(1)
		if k.Desc {
			missing = math.Inf(-1)
		}
		getters[i] = func(doc uint32, _ float64) float64 {
			if values == nil || int(doc) >= len(exists) || !exists[doc] {
				return missing
			}
			return values[doc]
		}
	}

	// A segment pre-sorted by the primary key cannot produce a better hit
	// once the queue is full and the current doc sorts after the worst
	// queued hit.
	sortedByPrimary := false
	if field, desc, ok := view.Seg.SortedBy(); ok && len(c.keys) > 0 {
		sortedByPrimary = field == c.keys[0].Field && desc == c.keys[0].Desc
	}

	return leafFunc(func(doc uint32, score float64) error {
		values := make([]float64, len(c.keys))
		for i, get := range getters {
			values[i] = get(doc, score)
		}
		c.tracker.hit()
		if len(c.after) > 0 && c.compareValues(values, c.after) <= 0 {
			return nil
		}
		h := topHit{ord: ord, doc: doc, score: score, sortValues: values}
		if c.numHits > 0 && c.heap.Len() >= c.numHits {
			if sortedByPrimary && c.primaryWorse(values[0]) {
				c.terminated = true
				c.tracker.gte = c.tracker.counting
				return errSegmentTerminated
			}
			if c.heap.worse(c.heap.hits[0], h) {
				c.heap.hits[0] = h
				heap.Fix(c.heap, 0)
			}
			return nil
		}
		if c.numHits > 0 {
			heap.Push(c.heap, h)
		}
		return nil
	}), nil
}

// primaryWorse reports whether a primary sort value is strictly worse than
// the worst queued hit's.
func (c *fieldTopDocs) primaryWorse(v float64) bool {
	worst := c.heap.hits[0].sortValues[0]
	if c.keys[0].Desc {
		return v < worst
	}
	return v > worst
}

func (c *fieldTopDocs) topDocs() result.TopDocs {
	var maxScore float64
	hits := drainHeap(c.heap)
	if c.scored {
		for _, h := range hits {
			if h.Score > maxScore {
				maxScore = h.Score
			}
		}
	}
	return result.TopDocs{
		Total:    c.tracker.totals(),
		MaxScore: maxScore,
		Hits:     hits,
	}
}

// drainHeap empties a heap into best-first order. IDs are resolved later
// by the query phase, which still has the snapshot at hand.
func drainHeap(h *hitHeap) []result.Hit {
	out := make([]result.Hit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		t := heap.Pop(h).(topHit)
		out[i] = result.Hit{
			Ord:        t.ord,
			Doc:        t.doc,
			Score:      t.score,
			SortValues: t.sortValues,
		}
	}
	return out
}
