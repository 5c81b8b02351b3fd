// Package agg defines the aggregation request and result types shared by
// the engine and the search service.
package agg

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
)

// Kind identifies an aggregation type.
type Kind string

const (
	KindTerms      Kind = "terms"
	KindStats      Kind = "stats"
	KindValueCount Kind = "value_count"
	KindFilters    Kind = "filters"
)

// Limits on aggregation requests.
const (
	DefaultTermsSize = 10
	MaxTermsSize     = 1000
	MaxAggs          = 32
	MaxFilters       = 64
)

// Agg is one named aggregation request.
type Agg struct {
	Kind    Kind
	Field   string
	Size    int // terms only
	Filters map[string]query.Query
}

// Decode parses the "aggs" section of a search body.
func Decode(raw map[string]json.RawMessage) (map[string]Agg, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > MaxAggs {
		return nil, fmt.Errorf("%w: too many aggregations (max %d)", domain.ErrInvalidQuery, MaxAggs)
	}
	out := make(map[string]Agg, len(raw))
	for name, body := range raw {
		a, err := decodeOne(body)
		if err != nil {
			return nil, fmt.Errorf("aggregation %q: %w", name, err)
		}
		out[name] = a
	}
	return out, nil
}

func decodeOne(body json.RawMessage) (Agg, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(body, &node); err != nil {
		return Agg{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	if len(node) != 1 {
		return Agg{}, fmt.Errorf("%w: aggregation must have exactly one type", domain.ErrInvalidQuery)
	}
	for kind, inner := range node {
		switch Kind(kind) {
		case KindTerms:
			var spec struct {
				Field string `json:"field"`
				Size  int    `json:"size"`
			}
			if err := json.Unmarshal(inner, &spec); err != nil {
				return Agg{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
			}
			if spec.Field == "" {
				return Agg{}, fmt.Errorf("%w: terms aggregation requires a field", domain.ErrInvalidQuery)
			}
			if spec.Size <= 0 {
				spec.Size = DefaultTermsSize
			}
			if spec.Size > MaxTermsSize {
				return Agg{}, fmt.Errorf("%w: terms size too large (max %d)", domain.ErrInvalidQuery, MaxTermsSize)
			}
			return Agg{Kind: KindTerms, Field: spec.Field, Size: spec.Size}, nil
		case KindStats, KindValueCount:
			var spec struct {
				Field string `json:"field"`
			}
			if err := json.Unmarshal(inner, &spec); err != nil {
				return Agg{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
			}
			if spec.Field == "" {
				return Agg{}, fmt.Errorf("%w: %s aggregation requires a field", domain.ErrInvalidQuery, kind)
			}
			return Agg{Kind: Kind(kind), Field: spec.Field}, nil
		case KindFilters:
			var spec struct {
				Filters map[string]json.RawMessage `json:"filters"`
			}
			if err := json.Unmarshal(inner, &spec); err != nil {
				return Agg{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
			}
			if len(spec.Filters) == 0 {
				return Agg{}, fmt.Errorf("%w: filters aggregation requires at least one filter", domain.ErrInvalidQuery)
			}
			if len(spec.Filters) > MaxFilters {
				return Agg{}, fmt.Errorf("%w: too many filters (max %d)", domain.ErrInvalidQuery, MaxFilters)
			}
			filters := make(map[string]query.Query, len(spec.Filters))
			for fname, fbody := range spec.Filters {
				q, err := query.Decode(fbody)
				if err != nil {
					return Agg{}, fmt.Errorf("filter %q: %w", fname, err)
				}
				filters[fname] = q
			}
			return Agg{Kind: KindFilters, Filters: filters}, nil
		default:
			return Agg{}, fmt.Errorf("%w: unknown aggregation type %q", domain.ErrInvalidQuery, kind)
		}
	}
	return Agg{}, fmt.Errorf("%w: empty aggregation", domain.ErrInvalidQuery)
}

// Bucket is one keyed bucket in a terms or filters result.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

// Stats is the result of a stats aggregation.
type Stats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
}

// Result is the computed value of one aggregation, shard-level or reduced.
type Result struct {
	Kind    Kind
	Buckets []Bucket
	Stats   *Stats
	Value   int64
}

// MarshalJSON renders the result in the conventional response shape for
// its kind.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindTerms, KindFilters:
		buckets := r.Buckets
		if buckets == nil {
			buckets = []Bucket{}
		}
		return json.Marshal(map[string]any{"buckets": buckets})
	case KindStats:
		st := r.Stats
		if st == nil {
			st = &Stats{}
		}
		return json.Marshal(st)
	case KindValueCount:
		return json.Marshal(map[string]any{"value": r.Value})
	}
	return nil, fmt.Errorf("unknown aggregation result kind %q", r.Kind)
}

// Reduce merges per-shard aggregation results into the final response.
// Terms buckets are summed across shards and re-truncated to the requested
// size; filters buckets are summed; stats are combined.
func Reduce(defs map[string]Agg, shards []map[string]Result) map[string]Result {
	if len(defs) == 0 {
		return nil
	}
	out := make(map[string]Result, len(defs))
	for name, def := range defs {
		parts := make([]Result, 0, len(shards))
		for _, sr := range shards {
			if r, ok := sr[name]; ok {
				parts = append(parts, r)
			}
		}
		out[name] = reduceOne(def, parts)
	}
	return out
}

func reduceOne(def Agg, parts []Result) Result {
	switch def.Kind {
	case KindTerms:
		counts := make(map[string]int64)
		for _, p := range parts {
			for _, b := range p.Buckets {
				counts[b.Key] += b.DocCount
			}
		}
		buckets := make([]Bucket, 0, len(counts))
		for key, n := range counts {
			buckets = append(buckets, Bucket{Key: key, DocCount: n})
		}
		sort.Slice(buckets, func(i, j int) bool {
			if buckets[i].DocCount != buckets[j].DocCount {
				return buckets[i].DocCount > buckets[j].DocCount
			}
			return buckets[i].Key < buckets[j].Key
		})
		if len(buckets) > def.Size {
			buckets = buckets[:def.Size]
		}
		return Result{Kind: KindTerms, Buckets: buckets}
	case KindFilters:
		counts := make(map[string]int64, len(def.Filters))
		for fname := range def.Filters {
			counts[fname] = 0
		}
		for _, p := range parts {
			for _, b := range p.Buckets {
				counts[b.Key] += b.DocCount
			}
		}
		buckets := make([]Bucket, 0, len(counts))
		for key, n := range counts {
			buckets = append(buckets, Bucket{Key: key, DocCount: n})
		}
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
		return Result{Kind: KindFilters, Buckets: buckets}
	case KindStats:
		var merged Stats
		for _, p := range parts {
			if p.Stats == nil || p.Stats.Count == 0 {
				continue
			}
			if merged.Count == 0 {
				merged.Min = p.Stats.Min
				merged.Max = p.Stats.Max
			} else {
				if p.Stats.Min < merged.Min {
					merged.Min = p.Stats.Min
				}
				if p.Stats.Max > merged.Max {
					merged.Max = p.Stats.Max
				}
			}
			merged.Count += p.Stats.Count
			merged.Sum += p.Stats.Sum
		}
		if merged.Count > 0 {
			merged.Avg = merged.Sum / float64(merged.Count)
		}
		return Result{Kind: KindStats, Stats: &merged}
	case KindValueCount:
		var total int64
		for _, p := range parts {
			total += p.Value
		}
		return Result{Kind: KindValueCount, Value: total}
	}
	return Result{Kind: def.Kind}
}
