// Package textdex provides an embedded, in-memory full-text search engine
// with a query phase modeled on distributed search: sharded indices,
// segment snapshots, BM25 scoring, aggregations and point-in-time views.
//
// # Low-level API — explicit control
//
//	client := textdex.New()
//	client.Indices().Create(ctx, "books",
//	    textdex.TextField("title"),
//	    textdex.KeywordField("genre"),
//	    textdex.NumericField("year"),
//	)
//	client.Documents("books").Index(ctx, "1", map[string]any{
//	    "title": "the quick brown fox", "genre": "fable", "year": 1867,
//	})
//	client.Indices().Refresh(ctx, "books")
//	res, _ := client.Search("books").Do(ctx, textdex.SearchParams{
//	    Query: textdex.Match("title", "fox"),
//	})
//
// # High-level API — schema-first with Go generics
//
//	type Book struct {
//	    ID    string  `textdex:"id,id"`
//	    Title string  `textdex:"title,text"`
//	    Genre string  `textdex:"genre,keyword"`
//	    Year  float64 `textdex:"year,numeric"`
//	}
//
//	idx, _ := textdex.NewIndex[Book](client, "books")
//	_ = idx.Ensure(ctx)
//	_ = idx.Put(ctx, Book{ID: "1", Title: "the quick brown fox"})
//	_ = idx.Refresh(ctx)
//	hits, _ := idx.Search().Match("title", "fox").Limit(10).Do(ctx)
package textdex
