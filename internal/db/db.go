// Package db defines the key-value store contract backing the request cache.
package db

import (
	"context"
	"time"
)

// Store is the key-value storage interface. Implemented by db/redis.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
