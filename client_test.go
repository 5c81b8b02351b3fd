package textdex

import (
	"context"
	"errors"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(WithDefaultShards(2))
	t.Cleanup(c.Close)
	return c
}

func setupBooks(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()
	err := c.Indices().Create(ctx, "books",
		TextField("title"),
		KeywordField("genre"),
		NumericField("year"),
	)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
}

func TestIndexDocumentSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	docs := c.Documents("books")
	books := []map[string]any{
		{"title": "the quick brown fox", "genre": "fable", "year": 1867},
		{"title": "a lazy dog sleeps", "genre": "fable", "year": 1901},
		{"title": "quantum mechanics", "genre": "science", "year": 1930},
	}
	for i, b := range books {
		if err := docs.Index(ctx, string(rune('a'+i)), b); err != nil {
			t.Fatalf("index: %v", err)
		}
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	res, err := c.Search("books").Do(ctx, SearchParams{
		Query: Match("title", "quick fox"),
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total.Value != 1 || !res.Total.Exact {
		t.Fatalf("total = %+v", res.Total)
	}
	if len(res.Results) != 1 || res.Results[0].ID != "a" {
		t.Fatalf("results = %+v", res.Results)
	}
	if res.Results[0].Source["genre"] != "fable" {
		t.Fatalf("source = %+v", res.Results[0].Source)
	}
}

func TestSearchWithFilterAndAggs(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	ops := []BulkOp{
		{Action: "index", ID: "1", Fields: map[string]any{"title": "alpha", "genre": "science", "year": 1950}},
		{Action: "index", ID: "2", Fields: map[string]any{"title": "beta", "genre": "science", "year": 1960}},
		{Action: "index", ID: "3", Fields: map[string]any{"title": "gamma", "genre": "fable", "year": 1970}},
	}
	if _, err := c.Documents("books").Bulk(ctx, ops); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	res, err := c.Search("books").Do(ctx, SearchParams{
		Query: Bool().
			Filter(Term("genre", "science")).
			Filter(Range("year").Gte(1955).Build()).
			Build(),
		Aggs: map[string]Agg{
			"genres": TermsAgg("genre", 10),
			"years":  StatsAgg("year"),
		},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total.Value != 1 || res.Results[0].ID != "2" {
		t.Fatalf("total = %+v, results = %+v", res.Total, res.Results)
	}

	// Aggregations run over the full query scope: one doc matched.
	if got := res.Buckets["genres"]; len(got) != 1 || got[0].Key != "science" {
		t.Fatalf("genres = %+v", got)
	}
	stats, ok := res.Stats["years"]
	if !ok || stats.Count != 1 || stats.Avg != 1960 {
		t.Fatalf("years = %+v", stats)
	}
}

func TestCountAndSort(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	docs := c.Documents("books")
	for i := 0; i < 10; i++ {
		err := docs.Index(ctx, string(rune('a'+i)), map[string]any{
			"title": "tale", "genre": "fable", "year": 1900 + i,
		})
		if err != nil {
			t.Fatalf("index: %v", err)
		}
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	n, err := c.Search("books").Count(ctx, Term("title", "tale"))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 10 {
		t.Fatalf("count = %d, want 10", n)
	}

	res, err := c.Search("books").Do(ctx, SearchParams{
		Sort: []SortField{{Field: "year", Desc: true}},
		Size: 3,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Results) != 3 || res.Results[0].ID != "j" {
		t.Fatalf("results = %+v", res.Results)
	}
	if res.Results[0].SortValues[0] != 1909 {
		t.Fatalf("sort values = %v", res.Results[0].SortValues)
	}
}

func TestPITIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	docs := c.Documents("books")
	if err := docs.Index(ctx, "a", map[string]any{"title": "old"}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	pit, err := c.Search("books").OpenPIT(ctx, 0)
	if err != nil {
		t.Fatalf("open pit: %v", err)
	}

	if err := docs.Index(ctx, "b", map[string]any{"title": "new"}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	pinned, err := c.Search("books").Do(ctx, SearchParams{PITID: pit})
	if err != nil {
		t.Fatalf("pit search: %v", err)
	}
	if pinned.Total.Value != 1 {
		t.Fatalf("pinned total = %+v", pinned.Total)
	}

	live, err := c.Search("books").Do(ctx, SearchParams{})
	if err != nil {
		t.Fatalf("live search: %v", err)
	}
	if live.Total.Value != 2 {
		t.Fatalf("live total = %+v", live.Total)
	}

	if err := c.Search("books").ClosePIT(ctx, pit); err != nil {
		t.Fatalf("close pit: %v", err)
	}
	if _, err := c.Search("books").Do(ctx, SearchParams{PITID: pit}); !errors.Is(err, ErrSearchContextMissing) {
		t.Fatalf("err = %v, want ErrSearchContextMissing", err)
	}
}

func TestSentinelErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	if err := c.Indices().Create(ctx, "books", TextField("title")); !errors.Is(err, ErrIndexExists) {
		t.Fatalf("err = %v, want ErrIndexExists", err)
	}
	if err := c.Indices().Ensure(ctx, "books", TextField("title")); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := c.Documents("books").Get(ctx, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	if _, err := c.Search("ghost").Do(ctx, SearchParams{}); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestStatsCounters(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	setupBooks(t, c)

	if err := c.Documents("books").Index(ctx, "a", map[string]any{"title": "x"}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := c.Indices().Refresh(ctx, "books"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := c.Search("books").Do(ctx, SearchParams{}); err != nil {
		t.Fatalf("search: %v", err)
	}

	st := c.Stats(ctx)
	if st.Indices != 1 || st.Docs != 1 || st.Searches != 1 || st.Indexed != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
