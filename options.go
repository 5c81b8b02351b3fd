package textdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	defaultShards int
	maxShards     int
	maxBulkSize   int

	maxConcurrentSearches int
	trackTotalHitsUpTo    int
	maxClauses            int
	defaultSearchTimeout  time.Duration
	pitKeepAliveMax       time.Duration

	logger *zap.Logger
}

// WithDefaultShards sets the shard count used when an index does not
// specify one. Default: 1.
func WithDefaultShards(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultShards = n
	})
}

// WithMaxShards sets the upper bound on shards per index. Default: 32.
func WithMaxShards(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxShards = n
	})
}

// WithMaxBulkSize sets the maximum number of actions per bulk request.
// Default: 1000.
func WithMaxBulkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBulkSize = n
	})
}

// WithMaxConcurrentSearches bounds the searches executing at once; excess
// requests fail with ErrSearchRejected. Default: 64.
func WithMaxConcurrentSearches(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConcurrentSearches = n
	})
}

// WithTrackTotalHitsUpTo sets the default hit count accuracy threshold
// applied when a search does not set one. Default: 10000.
func WithTrackTotalHitsUpTo(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.trackTotalHitsUpTo = n
	})
}

// WithMaxClauses sets the boolean clause limit per query. Default: 1024.
func WithMaxClauses(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxClauses = n
	})
}

// WithDefaultSearchTimeout sets the timeout applied to searches that do
// not carry their own. Zero (the default) means no timeout.
func WithDefaultSearchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultSearchTimeout = d
	})
}

// WithPITKeepAliveMax sets the ceiling on point-in-time keep-alive.
// Default: 5 minutes.
func WithPITKeepAliveMax(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pitKeepAliveMax = d
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
