package textdex

import (
	"context"
	"fmt"
)

// Hit is a typed search result.
type Hit[T any] struct {
	Item       T
	Score      float64
	SortValues []float64
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	idx *TypedIndex[T]

	query   Query
	filters []Query
	sort    []SortField
	size    int
	from    int
	pitID   string
}

// Query sets the scoring query. Defaults to match-all.
func (b *SearchBuilder[T]) Query(q Query) *SearchBuilder[T] {
	b.query = q
	return b
}

// Match is shorthand for Query(Match(field, text)).
func (b *SearchBuilder[T]) Match(field, text string) *SearchBuilder[T] {
	return b.Query(Match(field, text))
}

// Where adds a keyword filter condition (exact match, not scored).
func (b *SearchBuilder[T]) Where(field, value string) *SearchBuilder[T] {
	b.filters = append(b.filters, Term(field, value))
	return b
}

// WhereRange adds a numeric range filter condition.
func (b *SearchBuilder[T]) WhereRange(r *RangeQuery) *SearchBuilder[T] {
	b.filters = append(b.filters, r.Build())
	return b
}

// SortBy adds a sort key. Without one, hits are ordered by relevance.
func (b *SearchBuilder[T]) SortBy(field string, desc bool) *SearchBuilder[T] {
	b.sort = append(b.sort, SortField{Field: field, Desc: desc})
	return b
}

// Limit sets the maximum number of hits.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.size = n
	return b
}

// From sets the pagination offset.
func (b *SearchBuilder[T]) From(n int) *SearchBuilder[T] {
	b.from = n
	return b
}

// WithPIT runs the search against an open point-in-time view.
func (b *SearchBuilder[T]) WithPIT(id string) *SearchBuilder[T] {
	b.pitID = id
	return b
}

// Do executes the search and returns typed results.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	p := SearchParams{
		Query: b.query,
		Size:  b.size,
		From:  b.from,
		Sort:  b.sort,
		PITID: b.pitID,
	}
	if len(b.filters) > 0 {
		bq := Bool().Filter(b.filters...)
		if b.query.inner != nil {
			bq.Must(b.query)
		}
		p.Query = bq.Build()
	}

	res, err := b.idx.client.Search(b.idx.name).Do(ctx, p)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit[T], len(res.Results))
	for i, r := range res.Results {
		item, ok := b.idx.meta.fromFields(r.ID, r.Source).(T)
		if !ok {
			return nil, fmt.Errorf("search: type assertion failed for %q", r.ID)
		}
		hits[i] = Hit[T]{Item: item, Score: r.Score, SortValues: r.SortValues}
	}
	return hits, nil
}
