package request

import (
	"fmt"
	"math"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
)

// Search parameter limits.
const (
	DefaultSize = 10
	MaxSize     = 1000
	// MaxWindow bounds from+size for offset pagination. Deeper paging must
	// use search_after.
	MaxWindow = 10_000
)

// Sentinel values for total hit tracking.
const (
	// TrackTotalHitsAccurate requests an exact total regardless of cost.
	TrackTotalHitsAccurate = math.MaxInt32
	// TrackTotalHitsDisabled skips hit counting entirely.
	TrackTotalHitsDisabled = -1
)

// ScoreField is the pseudo-field that sorts by relevance.
const ScoreField = "_score"

// Sort is a single sort key.
type Sort struct {
	Field string
	Desc  bool
}

// Params carries the raw search parameters into New.
type Params struct {
	Query           query.Query
	PostFilter      query.Query
	Size            *int
	From            int
	MinScore        float64
	TerminateAfter  int
	TrackTotalHits  *int
	Timeout         time.Duration
	Sort            []Sort
	SearchAfter     []float64
	Profile         bool
	Aggs            map[string]agg.Agg
	PITID           string
	RequestCacheOff bool
}

// Request is a validated search request.
type Request struct {
	query          query.Query
	postFilter     query.Query
	size           int
	from           int
	minScore       float64
	terminateAfter int
	trackTotalHits int
	timeout        time.Duration
	sort           []Sort
	searchAfter    []float64
	profile        bool
	aggs           map[string]agg.Agg
	pitID          string
	cacheOff       bool
}

// New validates and normalizes search parameters. defaultTrackTotalHits is
// the node-level threshold applied when the request does not set one.
func New(p Params, defaultTrackTotalHits int) (Request, error) {
	if p.Query == nil {
		p.Query = &query.MatchAll{}
	}

	size := DefaultSize
	if p.Size != nil {
		size = *p.Size
	}
	if size < 0 {
		return Request{}, fmt.Errorf("size must not be negative")
	}
	if size > MaxSize {
		return Request{}, fmt.Errorf("size too large (max %d)", MaxSize)
	}
	if p.From < 0 {
		return Request{}, fmt.Errorf("from must not be negative")
	}
	if p.From+size > MaxWindow {
		return Request{}, fmt.Errorf("from + size exceeds the %d result window", MaxWindow)
	}
	if p.MinScore < 0 {
		return Request{}, fmt.Errorf("min_score must not be negative")
	}
	if p.TerminateAfter < 0 {
		return Request{}, fmt.Errorf("terminate_after must not be negative")
	}
	if p.Timeout < 0 {
		return Request{}, fmt.Errorf("timeout must not be negative")
	}

	track := defaultTrackTotalHits
	if p.TrackTotalHits != nil {
		track = *p.TrackTotalHits
	}
	if track < TrackTotalHitsDisabled {
		return Request{}, fmt.Errorf("track_total_hits must be -1, or a threshold >= 0")
	}

	for _, s := range p.Sort {
		if s.Field == "" {
			return Request{}, fmt.Errorf("sort field must not be empty")
		}
	}
	if len(p.SearchAfter) > 0 {
		if len(p.Sort) == 0 {
			return Request{}, fmt.Errorf("search_after requires an explicit sort")
		}
		if len(p.SearchAfter) != len(p.Sort) {
			return Request{}, fmt.Errorf("search_after must supply one value per sort key")
		}
	}

	return Request{
		query:          p.Query,
		postFilter:     p.PostFilter,
		size:           size,
		from:           p.From,
		minScore:       p.MinScore,
		terminateAfter: p.TerminateAfter,
		trackTotalHits: track,
		timeout:        p.Timeout,
		sort:           p.Sort,
		searchAfter:    p.SearchAfter,
		profile:        p.Profile,
		aggs:           p.Aggs,
		pitID:          p.PITID,
		cacheOff:       p.RequestCacheOff,
	}, nil
}

// Query returns the main query.
func (r *Request) Query() query.Query { return r.query }

// PostFilter returns the post filter, or nil.
func (r *Request) PostFilter() query.Query { return r.postFilter }

// Size returns the number of hits to return.
func (r *Request) Size() int { return r.size }

// From returns the pagination offset.
func (r *Request) From() int { return r.from }

// MinScore returns the minimum score threshold, 0 when unset.
func (r *Request) MinScore() float64 { return r.minScore }

// TerminateAfter returns the per-shard early termination document count,
// 0 when disabled.
func (r *Request) TerminateAfter() int { return r.terminateAfter }

// TrackTotalHits returns the total hit tracking threshold.
func (r *Request) TrackTotalHits() int { return r.trackTotalHits }

// Timeout returns the per-shard execution timeout, 0 when disabled.
func (r *Request) Timeout() time.Duration { return r.timeout }

// Sort returns the sort keys, empty for relevance order.
func (r *Request) Sort() []Sort { return r.sort }

// SearchAfter returns the search_after cursor values.
func (r *Request) SearchAfter() []float64 { return r.searchAfter }

// Profile reports whether execution profiling was requested.
func (r *Request) Profile() bool { return r.profile }

// Aggs returns the requested aggregations by name.
func (r *Request) Aggs() map[string]agg.Agg { return r.aggs }

// PITID returns the point-in-time ID, empty for a live search.
func (r *Request) PITID() string { return r.pitID }

// CacheOff reports whether the shard request cache is bypassed.
func (r *Request) CacheOff() bool { return r.cacheOff }

// CountOnly reports whether the request needs no hits, only a total.
func (r *Request) CountOnly() bool { return r.size == 0 }

// SortByScore reports whether results are in relevance order.
func (r *Request) SortByScore() bool {
	if len(r.sort) == 0 {
		return true
	}
	return len(r.sort) == 1 && r.sort[0].Field == ScoreField
}
