package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
)

func testSchema() index.Schema {
	return index.Schema{Fields: []index.Field{
		{Name: "title", Type: index.FieldTypeText},
		{Name: "tag", Type: index.FieldTypeKeyword},
		{Name: "rank", Type: index.FieldTypeNumeric},
	}}
}

func newTestShard(t *testing.T, settings index.Settings) *index.Shard {
	t.Helper()
	schema := testSchema()
	return index.NewShard(0, schema, settings, index.NewBuffer(schema, analysis.NewRegistry()))
}

func indexDocs(t *testing.T, sh *index.Shard, docs []map[string]any) *index.Snapshot {
	t.Helper()
	for i, d := range docs {
		if err := sh.Index(fmt.Sprintf("doc-%d", i), d); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	return sh.Refresh()
}

func foxDocs(n int) []map[string]any {
	docs := make([]map[string]any, n)
	for i := range docs {
		docs[i] = map[string]any{
			"title": "quick brown fox",
			"tag":   "animal",
			"rank":  float64(i),
		}
	}
	return docs
}

func mustRequest(t *testing.T, p request.Params) *request.Request {
	t.Helper()
	r, err := request.New(p, 10_000)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func execute(t *testing.T, snap *index.Snapshot, p request.Params) *result.ShardResult {
	t.Helper()
	res, err := Execute(context.Background(), snap, 0, mustRequest(t, p))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func intp(v int) *int { return &v }

func TestCountOnlyAnsweredFromStats(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	res := execute(t, snap, request.Params{Size: intp(0)})
	if res.TopDocs.Total != (result.TotalHits{Value: 50, Relation: result.RelationEq}) {
		t.Fatalf("Total = %+v", res.TopDocs.Total)
	}
	if res.TerminatedEarly != nil {
		t.Fatal("TerminatedEarly should be unset without terminate_after")
	}
	if len(res.TopDocs.Hits) != 0 {
		t.Fatalf("hits = %d, want 0", len(res.TopDocs.Hits))
	}
}

func TestCountOnlyTermShortcutStaysExact(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(239))

	// The threshold is far below the match count, but a clean segment
	// answers a term count from the postings stats without iterating.
	res := execute(t, snap, request.Params{
		Size:           intp(0),
		TrackTotalHits: intp(100),
		Query:          &query.Term{Field: "title", Value: "fox"},
	})
	if res.TopDocs.Total != (result.TotalHits{Value: 239, Relation: result.RelationEq}) {
		t.Fatalf("Total = %+v", res.TopDocs.Total)
	}
}

func TestCountOnlyThresholdStopsPartialCount(t *testing.T) {
	sh := newTestShard(t, index.Settings{Shards: 1})
	indexDocs(t, sh, foxDocs(239))
	// A deletion forces per-document counting.
	sh.Delete("doc-0")
	snap := sh.Refresh()

	res := execute(t, snap, request.Params{
		Size:           intp(0),
		TrackTotalHits: intp(100),
		Query:          &query.Term{Field: "title", Value: "fox"},
	})
	if res.TopDocs.Total != (result.TotalHits{Value: 100, Relation: result.RelationGte}) {
		t.Fatalf("Total = %+v", res.TopDocs.Total)
	}
}

func TestPostFilterDisablesCountOptimization(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	res := execute(t, snap, request.Params{
		Size:       intp(0),
		PostFilter: &query.MatchNone{},
	})
	if res.TopDocs.Total.Value != 0 {
		t.Fatalf("Total.Value = %d, want 0 with match-none post filter", res.TopDocs.Total.Value)
	}

	res = execute(t, snap, request.Params{
		Size:       intp(0),
		PostFilter: &query.MatchAll{},
	})
	if res.TopDocs.Total.Value != 10 {
		t.Fatalf("Total.Value = %d, want 10 with match-all post filter", res.TopDocs.Total.Value)
	}
}

func TestMinScoreDisablesCountOptimization(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	res := execute(t, snap, request.Params{Size: intp(0), MinScore: 0.01})
	if res.TopDocs.Total.Value != 10 {
		t.Fatalf("Total.Value = %d, want 10 with low min_score", res.TopDocs.Total.Value)
	}

	res = execute(t, snap, request.Params{Size: intp(0), MinScore: 100})
	if res.TopDocs.Total.Value != 0 {
		t.Fatalf("Total.Value = %d, want 0 with impossible min_score", res.TopDocs.Total.Value)
	}
}

func TestTerminateAfterEarlyTermination(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	res := execute(t, snap, request.Params{Size: intp(1), TerminateAfter: 1})
	if res.TerminatedEarly == nil || !*res.TerminatedEarly {
		t.Fatal("TerminatedEarly should be true")
	}
	if res.TopDocs.Total.Value != 1 {
		t.Fatalf("Total.Value = %d, want 1", res.TopDocs.Total.Value)
	}
	if len(res.TopDocs.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(res.TopDocs.Hits))
	}

	// Not reached: all docs collected, flag reports false.
	res = execute(t, snap, request.Params{Size: intp(10), TerminateAfter: 100})
	if res.TerminatedEarly == nil || *res.TerminatedEarly {
		t.Fatal("TerminatedEarly should be false when the limit is not reached")
	}
	if res.TopDocs.Total.Value != 50 {
		t.Fatalf("Total.Value = %d, want 50", res.TopDocs.Total.Value)
	}
}

func TestTerminateAfterWithTrackTotalHitsGrid(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	tests := []struct {
		track    int
		relation result.Relation
	}{
		{3, result.RelationGte},
		{25, result.RelationEq},
		{100, result.RelationEq},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("track_%d", tt.track), func(t *testing.T) {
			res := execute(t, snap, request.Params{
				Size:           intp(10),
				TerminateAfter: 7,
				TrackTotalHits: intp(tt.track),
			})
			if res.TerminatedEarly == nil || !*res.TerminatedEarly {
				t.Fatal("TerminatedEarly should be true")
			}
			if res.TopDocs.Total.Value != 7 {
				t.Fatalf("Total.Value = %d, want 7", res.TopDocs.Total.Value)
			}
			if res.TopDocs.Total.Relation != tt.relation {
				t.Fatalf("Relation = %q, want %q", res.TopDocs.Total.Relation, tt.relation)
			}
			if len(res.TopDocs.Hits) != 7 {
				t.Fatalf("hits = %d, want 7", len(res.TopDocs.Hits))
			}
		})
	}
}

func TestTerminateAfterWithTrackingDisabled(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	res := execute(t, snap, request.Params{
		Size:           intp(10),
		TerminateAfter: 7,
		TrackTotalHits: intp(request.TrackTotalHitsDisabled),
	})
	if res.TopDocs.Total != (result.TotalHits{Value: 0, Relation: result.RelationEq}) {
		t.Fatalf("Total = %+v, want zero with tracking disabled", res.TopDocs.Total)
	}
	if res.TerminatedEarly == nil || !*res.TerminatedEarly {
		t.Fatal("TerminatedEarly should still be true")
	}
	if len(res.TopDocs.Hits) != 7 {
		t.Fatalf("hits = %d, want 7", len(res.TopDocs.Hits))
	}

	// Count-only with tracking disabled still honors terminate_after.
	res = execute(t, snap, request.Params{
		Size:           intp(0),
		TerminateAfter: 7,
		TrackTotalHits: intp(request.TrackTotalHitsDisabled),
	})
	if res.TopDocs.Total.Value != 0 {
		t.Fatalf("Total.Value = %d, want 0", res.TopDocs.Total.Value)
	}
	if res.TerminatedEarly == nil || !*res.TerminatedEarly {
		t.Fatal("TerminatedEarly should be true")
	}
}

func TestTerminateAfterCountOnly(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	res := execute(t, snap, request.Params{Size: intp(0), TerminateAfter: 7})
	if res.TopDocs.Total.Value != 7 {
		t.Fatalf("Total.Value = %d, want 7", res.TopDocs.Total.Value)
	}
	if res.TopDocs.Total.Relation != result.RelationGte {
		t.Fatalf("Relation = %q, want gte after early termination", res.TopDocs.Total.Relation)
	}
	if res.TerminatedEarly == nil || !*res.TerminatedEarly {
		t.Fatal("TerminatedEarly should be true")
	}
}

func TestRelevanceOrdering(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "fox"},
		{"title": "fox fox fox jumps"},
		{"title": "no match here"},
	})

	res := execute(t, snap, request.Params{Query: &query.Term{Field: "title", Value: "fox"}})
	if len(res.TopDocs.Hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(res.TopDocs.Hits))
	}
	if res.TopDocs.Hits[0].ID != "doc-1" {
		t.Fatalf("top hit = %s, want doc-1 (higher term frequency)", res.TopDocs.Hits[0].ID)
	}
	if res.TopDocs.MaxScore <= 0 || res.TopDocs.MaxScore != res.TopDocs.Hits[0].Score {
		t.Fatalf("MaxScore = %v, top score = %v", res.TopDocs.MaxScore, res.TopDocs.Hits[0].Score)
	}
}

func TestFieldSortReturnsWholeWindow(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	// A shard keeps the full from+size window; the offset is applied
	// only after shard results are merged.
	res := execute(t, snap, request.Params{
		Size: intp(2),
		From: 1,
		Sort: []request.Sort{{Field: "rank"}},
	})
	if len(res.TopDocs.Hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(res.TopDocs.Hits))
	}
	for i, want := range []string{"doc-0", "doc-1", "doc-2"} {
		if res.TopDocs.Hits[i].ID != want {
			t.Fatalf("hit %d = %s, want %s", i, res.TopDocs.Hits[i].ID, want)
		}
	}
	if res.TopDocs.Hits[1].SortValues[0] != 1 {
		t.Fatalf("sort values = %v", res.TopDocs.Hits[1].SortValues)
	}
}

func TestSearchAfter(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	res := execute(t, snap, request.Params{
		Size:        intp(3),
		Sort:        []request.Sort{{Field: "rank"}},
		SearchAfter: []float64{4},
	})
	if len(res.TopDocs.Hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(res.TopDocs.Hits))
	}
	for i, want := range []string{"doc-5", "doc-6", "doc-7"} {
		if res.TopDocs.Hits[i].ID != want {
			t.Fatalf("hit %d = %s, want %s", i, res.TopDocs.Hits[i].ID, want)
		}
	}
}

func TestSortedSegmentEarlyTermination(t *testing.T) {
	sh := newTestShard(t, index.Settings{Shards: 1, SortField: "rank"})
	snap := indexDocs(t, sh, foxDocs(100))

	res := execute(t, snap, request.Params{
		Size: intp(1),
		Sort: []request.Sort{{Field: "rank"}},
	})
	if res.TopDocs.Hits[0].ID != "doc-0" {
		t.Fatalf("top hit = %s, want doc-0", res.TopDocs.Hits[0].ID)
	}
	if res.TopDocs.Total.Relation != result.RelationGte {
		t.Fatalf("Relation = %q, want gte after sorted early termination", res.TopDocs.Total.Relation)
	}
	if res.TopDocs.Total.Value >= 100 {
		t.Fatalf("Total.Value = %d, want fewer than the full match count", res.TopDocs.Total.Value)
	}
	// The terminate_after flag is reserved for terminate_after itself.
	if res.TerminatedEarly != nil {
		t.Fatal("TerminatedEarly should stay unset for sorted termination")
	}
}

func TestTimeoutReturnsPartialResults(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(50))

	req := mustRequest(t, request.Params{Timeout: time.Nanosecond})
	time.Sleep(time.Millisecond)
	res, err := Execute(context.Background(), snap, 0, req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("TimedOut should be true")
	}
}

func TestCancellationFailsTheSearch(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, snap, 0, mustRequest(t, request.Params{}))
	if !errors.Is(err, domain.ErrSearchCancelled) {
		t.Fatalf("err = %v, want ErrSearchCancelled", err)
	}
}

func TestCancellationDuringRewrite(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, snap, 0, mustRequest(t, request.Params{
		Query: &query.Prefix{Field: "title", Value: "fo"},
	}))
	if !errors.Is(err, domain.ErrSearchCancelled) {
		t.Fatalf("err = %v, want ErrSearchCancelled", err)
	}
}

func TestPrefixExpansion(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "fox den"},
		{"title": "fog bank"},
		{"title": "owl nest"},
	})

	res := execute(t, snap, request.Params{Query: &query.Prefix{Field: "title", Value: "fo"}})
	if len(res.TopDocs.Hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(res.TopDocs.Hits))
	}
	for _, h := range res.TopDocs.Hits {
		if h.Score != 1 {
			t.Fatalf("score = %v, want constant 1 for expanded prefix", h.Score)
		}
	}
}

func TestPhraseQuery(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "quick brown fox"},
		{"title": "brown quick fox"},
		{"title": "quick red brown"},
	})

	res := execute(t, snap, request.Params{
		Query: &query.Phrase{Field: "title", Terms: []string{"quick", "brown"}},
	})
	if len(res.TopDocs.Hits) != 1 || res.TopDocs.Hits[0].ID != "doc-0" {
		t.Fatalf("hits = %+v, want only doc-0", res.TopDocs.Hits)
	}
}

func TestRangeQuery(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))
	gte, lt := 3.0, 6.0

	res := execute(t, snap, request.Params{
		Query: &query.Range{Field: "rank", GTE: &gte, LT: &lt},
		Sort:  []request.Sort{{Field: "rank"}},
	})
	if len(res.TopDocs.Hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(res.TopDocs.Hits))
	}
	if res.TopDocs.Hits[0].ID != "doc-3" {
		t.Fatalf("first hit = %s, want doc-3", res.TopDocs.Hits[0].ID)
	}
}

func TestBoolMustNotAndMinimumShouldMatch(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "alpha beta"},
		{"title": "alpha gamma"},
		{"title": "alpha beta gamma"},
	})

	res := execute(t, snap, request.Params{Query: &query.Bool{Clauses: []query.Clause{
		{Occur: query.OccurMust, Query: &query.Term{Field: "title", Value: "alpha"}},
		{Occur: query.OccurMustNot, Query: &query.Term{Field: "title", Value: "gamma"}},
	}}})
	if len(res.TopDocs.Hits) != 1 || res.TopDocs.Hits[0].ID != "doc-0" {
		t.Fatalf("must_not: hits = %+v", res.TopDocs.Hits)
	}

	res = execute(t, snap, request.Params{Query: &query.Bool{
		Clauses: []query.Clause{
			{Occur: query.OccurShould, Query: &query.Term{Field: "title", Value: "beta"}},
			{Occur: query.OccurShould, Query: &query.Term{Field: "title", Value: "gamma"}},
		},
		MinimumShouldMatch: 2,
	}})
	if len(res.TopDocs.Hits) != 1 || res.TopDocs.Hits[0].ID != "doc-2" {
		t.Fatalf("minimum_should_match: hits = %+v", res.TopDocs.Hits)
	}
}

func TestAggregations(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "a", "tag": "red", "rank": 1.0},
		{"title": "b", "tag": "red", "rank": 3.0},
		{"title": "c", "tag": "blue", "rank": 5.0},
	})

	res := execute(t, snap, request.Params{
		Size: intp(0),
		Aggs: map[string]agg.Agg{
			"tags":  {Kind: agg.KindTerms, Field: "tag", Size: 10},
			"ranks": {Kind: agg.KindStats, Field: "rank"},
			"n":     {Kind: agg.KindValueCount, Field: "rank"},
			"split": {Kind: agg.KindFilters, Filters: map[string]query.Query{
				"red": &query.Term{Field: "tag", Value: "red"},
				"all": &query.MatchAll{},
			}},
		},
	})

	tags := res.Aggs["tags"]
	if len(tags.Buckets) != 2 || tags.Buckets[0].Key != "red" || tags.Buckets[0].DocCount != 2 {
		t.Fatalf("tags = %+v", tags.Buckets)
	}
	st := res.Aggs["ranks"].Stats
	if st.Count != 3 || st.Min != 1 || st.Max != 5 || st.Sum != 9 || st.Avg != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if res.Aggs["n"].Value != 3 {
		t.Fatalf("value_count = %d", res.Aggs["n"].Value)
	}
	split := res.Aggs["split"].Buckets
	if len(split) != 2 {
		t.Fatalf("filters buckets = %+v", split)
	}
	for _, b := range split {
		switch b.Key {
		case "red":
			if b.DocCount != 2 {
				t.Fatalf("red = %d, want 2", b.DocCount)
			}
		case "all":
			if b.DocCount != 3 {
				t.Fatalf("all = %d, want 3", b.DocCount)
			}
		}
	}
}

func TestFiltersAggEmptyFilters(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "a", "tag": "red"},
		{"title": "b", "tag": "red"},
	})

	// Filters that cannot match anything in the segment still report their
	// bucket, at zero.
	res := execute(t, snap, request.Params{
		Size: intp(0),
		Aggs: map[string]agg.Agg{
			"split": {Kind: agg.KindFilters, Filters: map[string]query.Query{
				"red":   &query.Term{Field: "tag", Value: "red"},
				"green": &query.Term{Field: "tag", Value: "green"},
				"none":  &query.MatchNone{},
			}},
		},
	})

	split := res.Aggs["split"].Buckets
	if len(split) != 3 {
		t.Fatalf("filters buckets = %+v", split)
	}
	want := map[string]int64{"red": 2, "green": 0, "none": 0}
	for _, b := range split {
		if b.DocCount != want[b.Key] {
			t.Fatalf("%s = %d, want %d", b.Key, b.DocCount, want[b.Key])
		}
	}
}

func TestRangeQueryBoost(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(3))

	gte := 1.0
	res := execute(t, snap, request.Params{
		Query: &query.Range{Field: "rank", GTE: &gte, Boost: 4},
	})
	if res.TopDocs.Total.Value != 2 {
		t.Fatalf("total = %d, want 2", res.TopDocs.Total.Value)
	}
	for _, h := range res.TopDocs.Hits {
		if h.Score != 4 {
			t.Fatalf("score = %v, want the boost", h.Score)
		}
	}
}

func TestPostFilterFiltersHitsNotAggs(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), []map[string]any{
		{"title": "a", "tag": "red"},
		{"title": "b", "tag": "blue"},
	})

	res := execute(t, snap, request.Params{
		PostFilter: &query.Term{Field: "tag", Value: "red"},
		Aggs: map[string]agg.Agg{
			"tags": {Kind: agg.KindTerms, Field: "tag", Size: 10},
		},
	})
	if len(res.TopDocs.Hits) != 1 || res.TopDocs.Hits[0].ID != "doc-0" {
		t.Fatalf("hits = %+v, want only the red doc", res.TopDocs.Hits)
	}
	if res.TopDocs.Total.Value != 1 {
		t.Fatalf("Total.Value = %d, want post-filtered total", res.TopDocs.Total.Value)
	}
	if len(res.Aggs["tags"].Buckets) != 2 {
		t.Fatalf("aggs = %+v, want both tags (post filter must not apply)", res.Aggs["tags"].Buckets)
	}
}

func TestMinScoreFiltersHitsAndTotals(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	res := execute(t, snap, request.Params{MinScore: 100})
	if len(res.TopDocs.Hits) != 0 || res.TopDocs.Total.Value != 0 {
		t.Fatalf("hits = %d, total = %d; want none above min_score",
			len(res.TopDocs.Hits), res.TopDocs.Total.Value)
	}
}

func TestProfile(t *testing.T) {
	snap := indexDocs(t, newTestShard(t, index.Settings{Shards: 1}), foxDocs(10))

	res := execute(t, snap, request.Params{
		Query:   &query.Term{Field: "title", Value: "fox"},
		Profile: true,
	})
	if res.Profile == nil {
		t.Fatal("Profile should be set")
	}
	qp := res.Profile.Query[0]
	if qp.Type != "TermQuery" || qp.Description != "title:fox" {
		t.Fatalf("query profile = %+v", qp)
	}
	if qp.Breakdown["next_doc_count"] == 0 {
		t.Fatal("breakdown should count next_doc calls")
	}
	if res.Profile.Collector == nil || res.Profile.Collector.Name != "TopDocsCollector" {
		t.Fatalf("collector profile = %+v", res.Profile.Collector)
	}
}

func TestMultipleSegments(t *testing.T) {
	sh := newTestShard(t, index.Settings{Shards: 1})
	for batch := 0; batch < 3; batch++ {
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("b%d-d%d", batch, i)
			doc := map[string]any{"title": "fox", "rank": float64(batch*5 + i)}
			if err := sh.Index(id, doc); err != nil {
				t.Fatalf("Index: %v", err)
			}
		}
		sh.Refresh()
	}
	snap := sh.Snapshot()
	if len(snap.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(snap.Segments))
	}

	res := execute(t, snap, request.Params{
		Size: intp(4),
		Sort: []request.Sort{{Field: "rank", Desc: true}},
	})
	if res.TopDocs.Total.Value != 15 {
		t.Fatalf("Total.Value = %d, want 15", res.TopDocs.Total.Value)
	}
	for i, want := range []string{"b2-d4", "b2-d3", "b2-d2", "b2-d1"} {
		if res.TopDocs.Hits[i].ID != want {
			t.Fatalf("hit %d = %s, want %s", i, res.TopDocs.Hits[i].ID, want)
		}
	}
}
