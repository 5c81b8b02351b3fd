package engine

import (
	"sort"

	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/index"
)

// aggCollector computes one shard's aggregations over the documents that
// match the main query.
type aggCollector struct {
	defs  map[string]agg.Agg
	terms map[string]map[string]int64
	stats map[string]*agg.Stats
	count map[string]int64
	filt  map[string]*filtersState
}

type filtersState struct {
	adapters map[string]*filterAdapter
	counts   map[string]int64
}

func newAggCollector(defs map[string]agg.Agg) *aggCollector {
	c := &aggCollector{
		defs:  defs,
		terms: make(map[string]map[string]int64),
		stats: make(map[string]*agg.Stats),
		count: make(map[string]int64),
		filt:  make(map[string]*filtersState),
	}
	for name, def := range defs {
		switch def.Kind {
		case agg.KindTerms:
			c.terms[name] = make(map[string]int64)
		case agg.KindStats:
			c.stats[name] = &agg.Stats{}
		case agg.KindFilters:
			st := &filtersState{
				adapters: make(map[string]*filterAdapter, len(def.Filters)),
				counts:   make(map[string]int64, len(def.Filters)),
			}
			for fname, fq := range def.Filters {
				st.adapters[fname] = newFilterAdapter(fq)
			}
			c.filt[name] = st
		}
	}
	return c
}

func (c *aggCollector) needsScores() bool { return false }

func (c *aggCollector) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	type termsLeaf struct {
		counts map[string]int64
		values []string
		exists []bool
	}
	type numericLeaf struct {
		name   string
		stats  *agg.Stats
		count  bool
		values []float64
		exists []bool
	}
	type filterLeaf struct {
		counts  map[string]int64
		matches map[string]matcher
	}

	var tl []termsLeaf
	var nl []numericLeaf
	var fl []filterLeaf

	for name, def := range c.defs {
		switch def.Kind {
		case agg.KindTerms:
			values, exists := view.Seg.KeywordValues(def.Field)
			if values == nil {
				continue
			}
			tl = append(tl, termsLeaf{counts: c.terms[name], values: values, exists: exists})
		case agg.KindStats, agg.KindValueCount:
			values, exists := view.Seg.NumericValues(def.Field)
			if values == nil {
				continue
			}
			leaf := numericLeaf{name: name, values: values, exists: exists}
			if def.Kind == agg.KindStats {
				leaf.stats = c.stats[name]
			} else {
				leaf.count = true
			}
			nl = append(nl, leaf)
		case agg.KindFilters:
			st := c.filt[name]
			leaf := filterLeaf{counts: st.counts, matches: make(map[string]matcher, len(st.adapters))}
			for fname, ad := range st.adapters {
				// A filter known to match nothing in this segment needs no
				// scorer; its bucket stays at the count it already has.
				if ad.count(view) == 0 {
					continue
				}
				m, err := ad.matcher(view)
				if err != nil {
					return nil, err
				}
				leaf.matches[fname] = m
			}
			if len(leaf.matches) > 0 {
				fl = append(fl, leaf)
			}
		}
	}

	return leafFunc(func(doc uint32, _ float64) error {
		for _, l := range tl {
			if int(doc) < len(l.exists) && l.exists[doc] {
				l.counts[l.values[doc]]++
			}
		}
		for _, l := range nl {
			if int(doc) >= len(l.exists) || !l.exists[doc] {
				continue
			}
			if l.count {
				c.count[l.name]++
				continue
			}
			v := l.values[doc]
			st := l.stats
			if st.Count == 0 {
				st.Min, st.Max = v, v
			} else {
				if v < st.Min {
					st.Min = v
				}
				if v > st.Max {
					st.Max = v
				}
			}
			st.Count++
			st.Sum += v
		}
		for _, l := range fl {
			for fname, match := range l.matches {
				if match(doc) {
					l.counts[fname]++
				}
			}
		}
		return nil
	}), nil
}

// results assembles the per-shard aggregation results. Terms buckets are
// oversized against the requested size so the reduce step can merge shard
// tails correctly.
func (c *aggCollector) results() map[string]agg.Result {
	out := make(map[string]agg.Result, len(c.defs))
	for name, def := range c.defs {
		switch def.Kind {
		case agg.KindTerms:
			counts := c.terms[name]
			buckets := make([]agg.Bucket, 0, len(counts))
			for key, n := range counts {
				buckets = append(buckets, agg.Bucket{Key: key, DocCount: n})
			}
			sort.Slice(buckets, func(i, j int) bool {
				if buckets[i].DocCount != buckets[j].DocCount {
					return buckets[i].DocCount > buckets[j].DocCount
				}
				return buckets[i].Key < buckets[j].Key
			})
			// Shard-level overfetch before the reduce truncates.
			keep := def.Size * 2
			if keep < def.Size {
				keep = def.Size
			}
			if len(buckets) > keep {
				buckets = buckets[:keep]
			}
			out[name] = agg.Result{Kind: agg.KindTerms, Buckets: buckets}
		case agg.KindStats:
			st := c.stats[name]
			if st.Count > 0 {
				st.Avg = st.Sum / float64(st.Count)
			}
			out[name] = agg.Result{Kind: agg.KindStats, Stats: st}
		case agg.KindValueCount:
			out[name] = agg.Result{Kind: agg.KindValueCount, Value: c.count[name]}
		case agg.KindFilters:
			st := c.filt[name]
			buckets := make([]agg.Bucket, 0, len(st.counts))
			for fname := range st.adapters {
				buckets = append(buckets, agg.Bucket{Key: fname, DocCount: st.counts[fname]})
			}
			sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
			out[name] = agg.Result{Kind: agg.KindFilters, Buckets: buckets}
		}
	}
	return out
}
