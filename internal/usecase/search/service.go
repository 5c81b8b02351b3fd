// Package search coordinates the distributed search: shard fan-out, result
// reduction, point-in-time contexts, request caching and throttling.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/engine"
	"github.com/textdex-cloud/textdex/internal/index"
	"github.com/textdex-cloud/textdex/internal/metrics"
	"github.com/textdex-cloud/textdex/internal/usecase/stats"
)

// Service runs searches against index snapshots.
type Service struct {
	registry  *index.Registry
	analyzers *analysis.Registry
	pits      *PITStore
	cache     RequestCache
	tracker   *stats.Tracker

	slots chan struct{}

	maxClauses            int
	defaultTrackTotalHits int
	defaultTimeout        time.Duration
}

// New creates a search Service. maxConcurrent bounds the searches executing
// at once; excess requests are rejected rather than queued.
func New(registry *index.Registry, analyzers *analysis.Registry, pits *PITStore, maxConcurrent, defaultTrackTotalHits int) *Service {
	return &Service{
		registry:              registry,
		analyzers:             analyzers,
		pits:                  pits,
		slots:                 make(chan struct{}, maxConcurrent),
		maxClauses:            query.DefaultMaxClauses,
		defaultTrackTotalHits: defaultTrackTotalHits,
	}
}

// WithMaxClauses overrides the boolean clause limit.
func (s *Service) WithMaxClauses(n int) *Service {
	if n > 0 {
		s.maxClauses = n
	}
	return s
}

// WithRequestCache attaches an optional count result cache.
func (s *Service) WithRequestCache(cache RequestCache) *Service {
	s.cache = cache
	return s
}

// WithTracker attaches operation stats tracking.
func (s *Service) WithTracker(t *stats.Tracker) *Service {
	s.tracker = t
	return s
}

// WithDefaultTimeout sets the timeout applied when a request has none.
func (s *Service) WithDefaultTimeout(d time.Duration) *Service {
	s.defaultTimeout = d
	return s
}

// Search runs the query phase on every shard, reduces the shard results and
// fetches the stored fields of the final hit page.
func (s *Service) Search(ctx context.Context, indexName string, p request.Params) (result.Result, error) {
	start := time.Now()

	// The node default timeout does not make a request uncacheable; only
	// an explicit per-request timeout does.
	explicitTimeout := p.Timeout != 0
	if !explicitTimeout {
		p.Timeout = s.defaultTimeout
	}

	snaps, schema, err := s.resolveContext(indexName, p.PITID)
	if err != nil {
		return result.Result{}, err
	}
	// Full-text query terms must pass through the same analyzer that
	// built the postings, or capitalized query text matches nothing.
	p.Query = analyzeQuery(p.Query, schema, s.analyzers)
	if p.PostFilter != nil {
		p.PostFilter = analyzeQuery(p.PostFilter, schema, s.analyzers)
	}

	req, err := request.New(p, s.defaultTrackTotalHits)
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuery, err)
	}
	if n := query.CountClauses(req.Query()); n > s.maxClauses {
		return result.Result{}, fmt.Errorf("%w: query has %d leaf clauses (max %d)", domain.ErrTooManyClauses, n, s.maxClauses)
	}
	if err := validateAggs(req.Aggs(), schema); err != nil {
		return result.Result{}, err
	}

	select {
	case s.slots <- struct{}{}:
	default:
		s.tracker.RecordRejection()
		metrics.SearchesTotal.WithLabelValues("rejected").Inc()
		return result.Result{}, domain.ErrSearchRejected
	}
	defer func() { <-s.slots }()
	metrics.SearchesActive.Inc()
	defer metrics.SearchesActive.Dec()

	cacheKey := ""
	if s.cacheable(&req, explicitTimeout) {
		cacheKey = s.cacheKey(indexName, snaps, p)
		if total, ok := s.cache.Get(ctx, cacheKey); ok {
			res := result.Result{
				Took:   time.Since(start),
				Shards: result.ShardCount{Total: len(snaps), Successful: len(snaps)},
				Total:  total,
				Hits:   []result.DocHit{},
			}
			s.record(res.Took, false)
			return res, nil
		}
	}

	shardResults := make([]*result.ShardResult, len(snaps))
	g, gctx := errgroup.WithContext(ctx)
	for i := range snaps {
		g.Go(func() error {
			sr, err := engine.Execute(gctx, snaps[i], i, &req)
			if err != nil {
				return domain.NewQueryPhaseError(i, err)
			}
			shardResults[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return result.Result{}, err
	}

	merged, page := reduce(&req, shardResults)
	merged.Hits = fetch(snaps, page)
	merged.PITID = req.PITID()
	merged.Took = time.Since(start)

	if cacheKey != "" && !merged.TimedOut {
		s.cache.Put(ctx, cacheKey, merged.Total)
	}
	if merged.TerminatedEarly != nil && *merged.TerminatedEarly {
		metrics.SearchEarlyTerminationsTotal.Inc()
	}
	s.record(merged.Took, merged.TimedOut)
	return merged, nil
}

// Count runs the size=0 search path and returns the exact total.
func (s *Service) Count(ctx context.Context, indexName string, p request.Params) (result.TotalHits, error) {
	zero := 0
	accurate := request.TrackTotalHitsAccurate
	p.Size = &zero
	p.From = 0
	p.TrackTotalHits = &accurate
	p.Sort = nil
	p.SearchAfter = nil

	res, err := s.Search(ctx, indexName, p)
	if err != nil {
		return result.TotalHits{}, err
	}
	return res.Total, nil
}

// OpenPIT pins the current snapshots of an index and returns the context id.
func (s *Service) OpenPIT(ctx context.Context, indexName string, keepAlive time.Duration) (string, error) {
	ix, err := s.registry.Get(indexName)
	if err != nil {
		return "", err
	}
	return s.pits.Open(ix, keepAlive), nil
}

// ClosePIT releases a point-in-time context.
func (s *Service) ClosePIT(ctx context.Context, id string) error {
	if !s.pits.Close(id) {
		return domain.ErrSearchContextMissing
	}
	return nil
}

// resolveContext picks the snapshot set to search: the live shard snapshots
// of the index, or the pinned ones of an open point-in-time context.
func (s *Service) resolveContext(indexName, pitID string) ([]*index.Snapshot, index.Schema, error) {
	if id := pitID; id != "" {
		pc, err := s.pits.Get(id)
		if err != nil {
			return nil, index.Schema{}, err
		}
		if indexName != "" && indexName != pc.indexName {
			return nil, index.Schema{}, fmt.Errorf(
				"%w: point in time belongs to index %q", domain.ErrInvalidQuery, pc.indexName,
			)
		}
		return pc.snaps, pc.schema, nil
	}

	ix, err := s.registry.Get(indexName)
	if err != nil {
		return nil, index.Schema{}, err
	}
	shards := ix.Shards()
	snaps := make([]*index.Snapshot, len(shards))
	for i, sh := range shards {
		snaps[i] = sh.Snapshot()
	}
	return snaps, ix.Schema(), nil
}

// cacheable reports whether the request qualifies for the count cache:
// count-only, deterministic and snapshot-addressed.
func (s *Service) cacheable(req *request.Request, explicitTimeout bool) bool {
	return s.cache != nil &&
		req.CountOnly() &&
		!req.CacheOff() &&
		req.PITID() == "" &&
		!explicitTimeout &&
		len(req.Aggs()) == 0 &&
		!req.Profile()
}

func (s *Service) cacheKey(indexName string, snaps []*index.Snapshot, p request.Params) string {
	reqBytes, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	gens := make([]uint64, len(snaps))
	for i, sn := range snaps {
		gens[i] = sn.Generation
	}
	return s.cache.Key(indexName, gens, reqBytes)
}

func (s *Service) record(took time.Duration, timedOut bool) {
	s.tracker.RecordSearch(took, timedOut)
	status := "ok"
	if timedOut {
		status = "timed_out"
	}
	metrics.SearchesTotal.WithLabelValues(status).Inc()
	metrics.SearchDuration.Observe(took.Seconds())
}

// fetch fills the stored fields of the final hit page from the shard
// snapshots the query phase ran against.
func fetch(snaps []*index.Snapshot, page []result.Hit) []result.DocHit {
	out := make([]result.DocHit, len(page))
	for i, h := range page {
		out[i] = result.DocHit{
			ID:         h.ID,
			Score:      h.Score,
			SortValues: h.SortValues,
			Source:     snaps[h.Shard].Segments[h.Ord].Seg.Stored(h.Doc),
		}
	}
	return out
}

// validateAggs checks aggregation field types against the index schema.
func validateAggs(defs map[string]agg.Agg, schema index.Schema) error {
	for name, def := range defs {
		if def.Kind == agg.KindFilters {
			continue
		}
		f, ok := schema.Field(def.Field)
		if !ok {
			return fmt.Errorf("%w: unknown field %q in aggregation %q", domain.ErrInvalidQuery, def.Field, name)
		}
		switch def.Kind {
		case agg.KindTerms:
			if f.Type != index.FieldTypeKeyword {
				return fmt.Errorf(
					"%w: terms aggregation %q requires a keyword field, %q is %s",
					domain.ErrInvalidQuery, name, def.Field, f.Type,
				)
			}
		case agg.KindStats, agg.KindValueCount:
			if f.Type != index.FieldTypeNumeric {
				return fmt.Errorf(
					"%w: %s aggregation %q requires a numeric field, %q is %s",
					domain.ErrInvalidQuery, def.Kind, name, def.Field, f.Type,
				)
			}
		}
	}
	return nil
}
