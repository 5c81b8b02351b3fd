// Package reqcache caches count-only search results in a key-value store.
package reqcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/textdex-cloud/textdex/internal/db"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
)

// store is the consumer interface for the request cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cachedTotal is the stored payload per count request.
type cachedTotal struct {
	Total result.TotalHits `json:"total"`
}

// Cache stores count results keyed by (index, shard generations, request).
// Keys embed shard generations, so any refresh naturally invalidates the
// entry. The cache is best-effort: store failures are logged and ignored.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a request cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, prefix string, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		prefix:     prefix + "req_cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Key derives a stable cache key from the index name, the generation of
// every shard snapshot and the serialized request.
func (c *Cache) Key(indexName string, generations []uint64, requestBytes []byte) string {
	h := xxhash.New()
	_, _ = h.WriteString(indexName)
	var buf [8]byte
	for _, g := range generations {
		for i := 0; i < 8; i++ {
			buf[i] = byte(g >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	_, _ = h.Write(requestBytes)
	return fmt.Sprintf("%s%x", c.prefix, h.Sum64())
}

// Get returns a cached total, or false on miss.
func (c *Cache) Get(ctx context.Context, key string) (result.TotalHits, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached count", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return result.TotalHits{}, false
	}

	var cached cachedTotal
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Failed to parse cached count", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return result.TotalHits{}, false
	}
	c.incCache("hit")
	return cached.Total, true
}

// Put stores a count result under the key.
func (c *Cache) Put(ctx context.Context, key string, total result.TotalHits) {
	data, err := json.Marshal(cachedTotal{Total: total})
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache count", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
