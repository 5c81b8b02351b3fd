package textdex

import (
	"context"
	"errors"
	"testing"
)

func newTestBooks(t *testing.T) *TypedIndex[book] {
	t.Helper()
	c := newTestClient(t)
	idx, err := NewIndex[book](c, "books")
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	return idx
}

func TestTypedIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := newTestBooks(t)

	b := book{ID: "1", Title: "the quick brown fox", Genre: "fable", Year: 1867}
	if err := idx.Put(ctx, b); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := idx.Get(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != b {
		t.Fatalf("got = %+v, want %+v", got, b)
	}

	if err := idx.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := idx.Get(ctx, "1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestTypedIndexEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := newTestBooks(t)
	if err := idx.Ensure(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
}

func TestTypedSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestBooks(t)

	books := []book{
		{ID: "1", Title: "the quick brown fox", Genre: "fable", Year: 1867},
		{ID: "2", Title: "the lazy dog", Genre: "fable", Year: 1901},
		{ID: "3", Title: "quick thinking", Genre: "science", Year: 1950},
	}
	results, err := idx.PutBatch(ctx, books)
	if err != nil {
		t.Fatalf("put batch: %v", err)
	}
	for _, r := range results {
		if !r.OK {
			t.Fatalf("batch item %s failed: %s", r.ID, r.Error)
		}
	}
	if err := idx.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	hits, err := idx.Search().
		Match("title", "quick").
		Where("genre", "fable").
		Do(ctx)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Item.ID != "1" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Item.Title != "the quick brown fox" {
		t.Fatalf("item = %+v", hits[0].Item)
	}

	sorted, err := idx.Search().
		WhereRange(Range("year").Gte(1900)).
		SortBy("year", true).
		Do(ctx)
	if err != nil {
		t.Fatalf("sorted search: %v", err)
	}
	if len(sorted) != 2 || sorted[0].Item.ID != "3" || sorted[1].Item.ID != "2" {
		t.Fatalf("sorted = %+v", sorted)
	}
}

func TestTypedSearchWithPIT(t *testing.T) {
	ctx := context.Background()
	idx := newTestBooks(t)

	if err := idx.Put(ctx, book{ID: "1", Title: "first", Genre: "x", Year: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	pit, err := idx.client.Search("books").OpenPIT(ctx, 0)
	if err != nil {
		t.Fatalf("open pit: %v", err)
	}

	if err := idx.Put(ctx, book{ID: "2", Title: "second", Genre: "x", Year: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	hits, err := idx.Search().WithPIT(pit).Do(ctx)
	if err != nil {
		t.Fatalf("pit search: %v", err)
	}
	if len(hits) != 1 || hits[0].Item.ID != "1" {
		t.Fatalf("hits = %+v", hits)
	}
}
