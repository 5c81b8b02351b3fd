package search

import (
	"context"

	"github.com/textdex-cloud/textdex/internal/domain/search/result"
)

// RequestCache stores count-only totals keyed by index, shard generations
// and the serialized request. Implemented by repository/reqcache.
type RequestCache interface {
	Key(indexName string, generations []uint64, requestBytes []byte) string
	Get(ctx context.Context, key string) (result.TotalHits, bool)
	Put(ctx context.Context, key string, total result.TotalHits)
}
