package search

import (
	"sort"

	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
)

// reduce merges per-shard query phase results into one response: global hit
// ordering, summed totals with relation widening, flag OR and agg reduce.
// The from offset is applied here, after the global sort. The returned page
// still addresses shard snapshots; the fetch phase turns it into DocHits.
func reduce(req *request.Request, shards []*result.ShardResult) (result.Result, []result.Hit) {
	merged := result.Result{
		Shards: result.ShardCount{Total: len(shards), Successful: len(shards)},
		Total:  result.TotalHits{Relation: result.RelationEq},
		Hits:   []result.DocHit{},
	}

	var hits []result.Hit
	var shardAggs []map[string]agg.Result
	for _, sr := range shards {
		merged.Total.Value += sr.TopDocs.Total.Value
		if sr.TopDocs.Total.Relation == result.RelationGte {
			merged.Total.Relation = result.RelationGte
		}
		if sr.TopDocs.MaxScore > merged.MaxScore {
			merged.MaxScore = sr.TopDocs.MaxScore
		}
		if sr.TimedOut {
			merged.TimedOut = true
		}
		if sr.TerminatedEarly != nil {
			if merged.TerminatedEarly == nil {
				merged.TerminatedEarly = new(bool)
			}
			if *sr.TerminatedEarly {
				*merged.TerminatedEarly = true
			}
		}
		hits = append(hits, sr.TopDocs.Hits...)
		if sr.Aggs != nil {
			shardAggs = append(shardAggs, sr.Aggs)
		}
		if sr.Profile != nil {
			merged.Profile = append(merged.Profile, sr.Profile)
		}
	}

	sortHits(req, hits)
	page := window(hits, req.From(), req.Size())

	if len(req.Aggs()) > 0 {
		merged.Aggs = agg.Reduce(req.Aggs(), shardAggs)
	}
	return merged, page
}

// sortHits orders merged hits the way each shard ordered its own, with the
// shard id breaking exact ties so pagination is stable across requests.
func sortHits(req *request.Request, hits []result.Hit) {
	if req.SortByScore() {
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].Score != hits[j].Score {
				return hits[i].Score > hits[j].Score
			}
			return tieBreak(hits[i], hits[j])
		})
		return
	}

	keys := req.Sort()
	sort.SliceStable(hits, func(i, j int) bool {
		for k := range keys {
			a, b := hits[i].SortValues[k], hits[j].SortValues[k]
			if a == b {
				continue
			}
			if keys[k].Desc {
				return a > b
			}
			return a < b
		}
		return tieBreak(hits[i], hits[j])
	})
}

func tieBreak(a, b result.Hit) bool {
	if a.Shard != b.Shard {
		return a.Shard < b.Shard
	}
	if a.Ord != b.Ord {
		return a.Ord < b.Ord
	}
	return a.Doc < b.Doc
}

// window slices the from..from+size page out of the merged hit list.
func window(hits []result.Hit, from, size int) []result.Hit {
	if from >= len(hits) {
		return nil
	}
	hits = hits[from:]
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits
}
