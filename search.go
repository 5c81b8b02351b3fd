package textdex

import (
	"context"
	"fmt"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	searchuc "github.com/textdex-cloud/textdex/internal/usecase/search"
)

// SortField is one sort key of a search.
type SortField struct {
	Field string
	Desc  bool
}

// Agg is an opaque aggregation request. Build one with TermsAgg, StatsAgg
// or ValueCountAgg.
type Agg struct {
	inner agg.Agg
}

// TermsAgg buckets documents by the values of a keyword field. size caps
// the buckets returned; 0 means the default of 10.
func TermsAgg(field string, size int) Agg {
	return Agg{inner: agg.Agg{Kind: agg.KindTerms, Field: field, Size: size}}
}

// StatsAgg computes count, min, max, sum and avg over a numeric field.
func StatsAgg(field string) Agg {
	return Agg{inner: agg.Agg{Kind: agg.KindStats, Field: field}}
}

// ValueCountAgg counts the documents with a value in the field.
func ValueCountAgg(field string) Agg {
	return Agg{inner: agg.Agg{Kind: agg.KindValueCount, Field: field}}
}

// SearchParams configures one search.
type SearchParams struct {
	Query  Query
	Filter Query // applied after aggregations (post filter)

	Size int // hits to return, 0 = default (10), negative = none
	From int

	MinScore       float64
	Sort           []SortField
	SearchAfter    []float64
	TerminateAfter int

	// TrackTotalHits bounds hit counting: 0 uses the client default,
	// TrackTotalAccurate counts exactly, TrackTotalDisabled skips counting.
	TrackTotalHits int

	Timeout time.Duration
	PITID   string

	Aggs map[string]Agg
}

// TrackTotalHits sentinel values.
const (
	TrackTotalAccurate = request.TrackTotalHitsAccurate
	TrackTotalDisabled = request.TrackTotalHitsDisabled
)

// SearchService executes searches against a single index.
type SearchService struct {
	index string
	svc   *searchuc.Service
}

// Do executes a search.
func (s *SearchService) Do(ctx context.Context, p SearchParams) (SearchResponse, error) {
	res, err := s.svc.Search(ctx, s.index, toParams(p))
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search %q: %w", s.index, err)
	}
	return fromResult(res), nil
}

// Count returns the exact number of documents matching the query.
func (s *SearchService) Count(ctx context.Context, q Query) (int64, error) {
	total, err := s.svc.Count(ctx, s.index, request.Params{Query: q.inner})
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", s.index, err)
	}
	return total.Value, nil
}

// OpenPIT opens a point-in-time view of the index. Searches with the
// returned ID see the index as it was at this call, regardless of later
// writes. keepAlive zero uses the client ceiling.
func (s *SearchService) OpenPIT(ctx context.Context, keepAlive time.Duration) (string, error) {
	id, err := s.svc.OpenPIT(ctx, s.index, keepAlive)
	if err != nil {
		return "", fmt.Errorf("open pit on %q: %w", s.index, err)
	}
	return id, nil
}

// ClosePIT releases a point-in-time view.
func (s *SearchService) ClosePIT(ctx context.Context, id string) error {
	if err := s.svc.ClosePIT(ctx, id); err != nil {
		return fmt.Errorf("close pit: %w", err)
	}
	return nil
}

func toParams(p SearchParams) request.Params {
	out := request.Params{
		Query:          p.Query.inner,
		PostFilter:     p.Filter.inner,
		From:           p.From,
		MinScore:       p.MinScore,
		TerminateAfter: p.TerminateAfter,
		Timeout:        p.Timeout,
		SearchAfter:    p.SearchAfter,
		PITID:          p.PITID,
	}
	if p.Size != 0 {
		size := max(p.Size, 0)
		out.Size = &size
	}
	if p.TrackTotalHits != 0 {
		track := p.TrackTotalHits
		out.TrackTotalHits = &track
	}
	for _, s := range p.Sort {
		out.Sort = append(out.Sort, request.Sort{Field: s.Field, Desc: s.Desc})
	}
	if len(p.Aggs) > 0 {
		out.Aggs = make(map[string]agg.Agg, len(p.Aggs))
		for name, a := range p.Aggs {
			out.Aggs[name] = a.inner
		}
	}
	return out
}

func fromResult(res result.Result) SearchResponse {
	out := SearchResponse{
		Total: TotalHits{
			Value: res.Total.Value,
			Exact: res.Total.Relation == result.RelationEq,
		},
		TimedOut: res.TimedOut,
		TookMs:   res.Took.Milliseconds(),
		PITID:    res.PITID,
		Results:  make([]SearchResult, len(res.Hits)),
	}
	for i, h := range res.Hits {
		out.Results[i] = SearchResult{
			ID:         h.ID,
			Score:      h.Score,
			SortValues: h.SortValues,
			Source:     h.Source,
		}
	}
	for name, r := range res.Aggs {
		switch r.Kind {
		case agg.KindTerms, agg.KindFilters:
			if out.Buckets == nil {
				out.Buckets = make(map[string][]AggBucket)
			}
			buckets := make([]AggBucket, len(r.Buckets))
			for i, b := range r.Buckets {
				buckets[i] = AggBucket{Key: b.Key, DocCount: b.DocCount}
			}
			out.Buckets[name] = buckets
		case agg.KindStats:
			if out.Stats == nil {
				out.Stats = make(map[string]AggStats)
			}
			out.Stats[name] = AggStats{
				Count: r.Stats.Count,
				Min:   r.Stats.Min,
				Max:   r.Stats.Max,
				Sum:   r.Stats.Sum,
				Avg:   r.Stats.Avg,
			}
		case agg.KindValueCount:
			if out.Values == nil {
				out.Values = make(map[string]int64)
			}
			out.Values[name] = r.Value
		}
	}
	return out
}
