package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: key not found")

// Pipeline batches mutations so they are applied together.
type Pipeline interface {
	Set(key string, value string, ttl time.Duration)
	Incr(key string)
	Expire(key string, ttl time.Duration)
	Del(keys ...string)
}

// Cache is the shared key-value service holding sessions, OTPs, nonce
// counters, and submission status. It is the only shared mutable state
// between request handlers; implementations must make Incr and SetNX
// atomic across all concurrent callers.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetNX sets the key only if it does not exist and reports whether
	// this call created it.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the integer at key and returns the new
	// value. A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)

	// TTL returns the remaining lifetime of key, or ErrMiss.
	TTL(ctx context.Context, key string) (time.Duration, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// Pipelined applies every mutation recorded by fn as one batch.
	Pipelined(ctx context.Context, fn func(p Pipeline)) error
}
