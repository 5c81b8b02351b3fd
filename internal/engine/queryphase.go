package engine

import (
	"context"
	"errors"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
)

// topDocsCollector is the hit-collecting half of the chain.
type topDocsCollector interface {
	collector
	topDocs() result.TopDocs
}

// Execute runs the query phase for one shard snapshot: rewrite and expand
// the query, pick a collector chain for the request shape, drive it over
// the segments and assemble the shard result.
//
// A request that only needs a total (size 0, no post filter, min_score or
// aggregations) is answered from index statistics where possible instead
// of collecting documents. A timeout produces the partial results gathered
// so far with the timed-out flag set; cancellation returns an error.
func Execute(ctx context.Context, snap *index.Snapshot, shard int, req *request.Request) (*result.ShardResult, error) {
	start := time.Now()
	checker := newCancelChecker(ctx, req.Timeout())
	res := &result.ShardResult{Shard: shard}
	res.TopDocs.Total = result.TotalHits{Relation: result.RelationEq}

	// A timeout during rewrite yields an empty timed-out result; a
	// cancellation or an over-expanded query is a hard error.
	if err := checker.checkNow(); err != nil && !errors.Is(err, errTimeExceeded) {
		return nil, err
	}
	q, err := expandQuery(query.Rewrite(req.Query()), snap, checker, query.MaxTermsExpanded)
	if err != nil {
		if errors.Is(err, errTimeExceeded) {
			res.TimedOut = true
			res.Took = time.Since(start)
			return res, nil
		}
		return nil, err
	}
	var pf query.Query
	if req.PostFilter() != nil {
		pf, err = expandQuery(query.Rewrite(req.PostFilter()), snap, checker, query.MaxTermsExpanded)
		if err != nil {
			if errors.Is(err, errTimeExceeded) {
				res.TimedOut = true
				res.Took = time.Since(start)
				return res, nil
			}
			return nil, err
		}
	}

	if req.CountOnly() && pf == nil && req.MinScore() == 0 && len(req.Aggs()) == 0 && !req.Profile() {
		return executeCount(snap, q, req, checker, res, start)
	}
	return executeTopDocs(snap, q, pf, req, checker, res, start)
}

func executeCount(snap *index.Snapshot, q query.Query, req *request.Request, checker *cancelChecker, res *result.ShardResult, start time.Time) (*result.ShardResult, error) {
	track := req.TrackTotalHits()
	terminateAfter := req.TerminateAfter()
	counting := track != request.TrackTotalHitsDisabled
	threshold := int64(-1)
	if counting && track != request.TrackTotalHitsAccurate {
		threshold = int64(track)
	}

	var total, seen int64
	gte := false
	terminated := false
	timedOut := false

	if counting || terminateAfter > 0 {
	segments:
		for _, view := range snap.Segments {
			if err := checker.checkNow(); err != nil {
				if errors.Is(err, errTimeExceeded) {
					timedOut = true
					break
				}
				return nil, err
			}
			// Free leaf counts keep the total exact; falling out of the
			// shortcut costs one pass over the segment's matches.
			if terminateAfter == 0 {
				if c := shortcutCount(q, view); c >= 0 {
					total += int64(c)
					continue
				}
				if threshold >= 0 && total >= threshold {
					gte = true
					break
				}
			}

			sc, err := buildScorer(q, view.Seg, 1)
			if err != nil {
				return nil, err
			}
			for sc.Next() {
				if err := checker.check(); err != nil {
					if errors.Is(err, errTimeExceeded) {
						timedOut = true
						break segments
					}
					return nil, err
				}
				if !view.Live(sc.DocID()) {
					continue
				}
				seen++
				if counting {
					total++
				}
				if terminateAfter > 0 && seen >= int64(terminateAfter) {
					terminated = true
					gte = counting
					break segments
				}
				if terminateAfter == 0 && threshold >= 0 && total >= threshold {
					gte = true
					break segments
				}
			}
		}
	}

	if !counting {
		total, gte = 0, false
	}
	rel := result.RelationEq
	if gte {
		rel = result.RelationGte
	}
	res.TopDocs.Total = result.TotalHits{Value: total, Relation: rel}
	if terminateAfter > 0 {
		res.TerminatedEarly = &terminated
	}
	res.TimedOut = timedOut
	res.Took = time.Since(start)
	return res, nil
}

func executeTopDocs(snap *index.Snapshot, q, pf query.Query, req *request.Request, checker *cancelChecker, res *result.ShardResult, start time.Time) (*result.ShardResult, error) {
	numHits := req.From() + req.Size()
	if docs := snap.DocCount(); numHits > docs {
		numHits = docs
	}

	var hits topDocsCollector
	if req.SortByScore() {
		hits = newScoreTopDocs(numHits, req.TrackTotalHits(), req.SearchAfter())
	} else {
		hits = newFieldTopDocs(numHits, req.Sort(), req.TrackTotalHits(), req.SearchAfter())
	}

	profiling := req.Profile()
	var collProf *result.CollectorProfile
	chain := collector(hits)
	if profiling {
		pc := newProfileCollector(chain, "TopDocsCollector", "search_top_hits", nil)
		chain, collProf = pc, pc.node
	}
	if pf != nil {
		chain = newPostFilter(chain, pf)
		if profiling {
			pc := newProfileCollector(chain, "FilteredCollector", "search_post_filter", collProf)
			chain, collProf = pc, pc.node
		}
	}
	var aggs *aggCollector
	if len(req.Aggs()) > 0 {
		aggs = newAggCollector(req.Aggs())
		var aggChain collector = aggs
		if profiling {
			pc := newProfileCollector(aggChain, "AggregationCollector", "aggregation", nil)
			aggChain = pc
			collProf = &result.CollectorProfile{
				Name:     "MultiCollector",
				Reason:   "search_multi",
				Children: []*result.CollectorProfile{collProf, pc.node},
			}
		}
		chain = newMultiCollector(chain, aggChain)
	}
	if req.MinScore() > 0 {
		chain = newMinScoreFilter(chain, req.MinScore())
		if profiling {
			pc := newProfileCollector(chain, "MinimumScoreCollector", "search_min_score", collProf)
			chain, collProf = pc, pc.node
		}
	}
	var term *earlyTerminator
	if req.TerminateAfter() > 0 {
		term = newEarlyTerminator(chain, req.TerminateAfter())
		chain = term
		if profiling {
			pc := newProfileCollector(chain, "EarlyTerminatingCollector", "search_terminate_after_count", collProf)
			chain, collProf = pc, pc.node
		}
	}

	s := &searcher{snap: snap, checker: checker}
	var queryProf *result.QueryProfile
	if profiling {
		queryProf = newQueryProfile(q)
		s.profile = queryProf
	}

	timedOut := false
	if err := s.search(q, chain); err != nil {
		switch {
		case errors.Is(err, errCollectionTerminated):
		case errors.Is(err, errTimeExceeded):
			timedOut = true
		default:
			return nil, err
		}
	}

	// The shard reports its whole from+size window; the coordinator
	// applies the from offset after merging shards.
	td := hits.topDocs()
	for i := range td.Hits {
		h := &td.Hits[i]
		h.Shard = res.Shard
		h.ID = snap.Segments[h.Ord].Seg.ExternalID(h.Doc)
	}
	res.TopDocs = td
	if term != nil {
		v := term.terminated
		res.TerminatedEarly = &v
	}
	if aggs != nil {
		res.Aggs = aggs.results()
	}
	if profiling {
		res.Profile = &result.ShardProfile{
			Shard:     res.Shard,
			Query:     []*result.QueryProfile{queryProf},
			Collector: collProf,
		}
	}
	res.TimedOut = timedOut
	res.Took = time.Since(start)
	return res, nil
}
