// Package cache holds short-lived derived data (the metadata aggregate)
// in memory or in Redis. The store stays authoritative; a miss always
// falls through to it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented TTL cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Options configures a backend.
type Options struct {
	// DefaultTTL applies when Set is called with ttl == 0.
	DefaultTTL time.Duration
	// KeyPrefix namespaces keys in a shared backend.
	KeyPrefix string
}

func (o Options) withDefaults() Options {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = 5 * time.Minute
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "snipstash"
	}
	return o
}

func (o Options) key(k string) string {
	return o.KeyPrefix + ":" + k
}
