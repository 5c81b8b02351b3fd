package textdex

import (
	"context"
	"fmt"
)

// TypedIndex is a generic, schema-first index backed by a textdex Client.
// Schema is inferred from T's struct tags at construction time.
type TypedIndex[T any] struct {
	name   string
	client *Client
	meta   *schemaMeta
	opts   []IndexOption
}

// NewIndex creates a typed index handle for the given index name. T must
// be a struct with textdex tags; the schema is parsed once and cached.
// Extra options (Shards, SortedBy) apply on Ensure.
func NewIndex[T any](client *Client, name string, opts ...IndexOption) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	return &TypedIndex[T]{name: name, client: client, meta: meta, opts: opts}, nil
}

// Ensure creates the index if it does not exist (idempotent).
func (idx *TypedIndex[T]) Ensure(ctx context.Context) error {
	opts := append(idx.meta.indexOptions(), idx.opts...)
	return idx.client.Indices().Ensure(ctx, idx.name, opts...)
}

// Put stores an item under its tagged ID, replacing any previous version.
// The write becomes searchable after the next Refresh.
func (idx *TypedIndex[T]) Put(ctx context.Context, item T) error {
	return idx.client.Documents(idx.name).Index(ctx, idx.meta.id(item), idx.meta.toFields(item))
}

// PutBatch stores items in one bulk request.
func (idx *TypedIndex[T]) PutBatch(ctx context.Context, items []T) ([]BulkResult, error) {
	ops := make([]BulkOp, len(items))
	for i, item := range items {
		ops[i] = BulkOp{
			Action: "index",
			ID:     idx.meta.id(item),
			Fields: idx.meta.toFields(item),
		}
	}
	return idx.client.Documents(idx.name).Bulk(ctx, ops)
}

// Get retrieves a typed item by ID.
func (idx *TypedIndex[T]) Get(ctx context.Context, id string) (T, error) {
	fields, err := idx.client.Documents(idx.name).Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	item, ok := idx.meta.fromFields(id, fields).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("get %q: type assertion failed", id)
	}
	return item, nil
}

// Delete removes an item by ID.
func (idx *TypedIndex[T]) Delete(ctx context.Context, id string) error {
	return idx.client.Documents(idx.name).Delete(ctx, id)
}

// Refresh makes buffered writes visible to search.
func (idx *TypedIndex[T]) Refresh(ctx context.Context) error {
	return idx.client.Indices().Refresh(ctx, idx.name)
}

// Count returns the number of searchable items.
func (idx *TypedIndex[T]) Count(ctx context.Context) (int64, error) {
	return idx.client.Search(idx.name).Count(ctx, MatchAll())
}

// Search returns a fluent search builder for this index.
func (idx *TypedIndex[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx}
}
