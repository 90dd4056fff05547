// Package cache defines storage for memoized adjacent-prime search
// results, keyed by search direction and starting point.
package cache

import (
	"context"
	"strconv"

	"github.com/gomodule/redigo/redis"
)

// Cache stores the outcome of adjacent-prime searches so that a search
// already performed for a starting point is never repeated.
type Cache interface {
	// Return the memoized prime for a search in direction from n. The
	// boolean is false on a miss.
	// NOTE: a cache miss *should not* return an error.
	GetResult(ctx context.Context, direction string, n uint64) (uint64, bool, error)
	// Memoize the prime found by a search in direction from n. A
	// result of 0 records that no prime exists in range, so the
	// exhausted search is not repeated either.
	SetResult(ctx context.Context, direction string, n uint64, result uint64) error
}

// Key returns the storage key for a search in direction from n.
func Key(direction string, n uint64) string {
	return direction + ":" + strconv.FormatUint(n, 16)
}

// NoopCache implements Cache interface without any real cacheing.
type NoopCache struct{}

// Always reports a miss for every search.
func (c *NoopCache) GetResult(_ context.Context, _ string, _ uint64) (uint64, bool, error) {
	return 0, false, nil
}

// Ignores the result and returns nil error.
func (c *NoopCache) SetResult(_ context.Context, _ string, _ uint64, _ uint64) error {
	return nil
}

// Creates a no-operation Cache implementation that satisfies the
// interface requirements without performing any real caching. All
// results are silently dropped by SetResult and calls to GetResult
// always report a miss.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// RedisCache implements Cache interface backed by a Redis store.
type RedisCache struct {
	*redis.Pool
}

type RedisCacheOption func(*RedisCache)

// Return a new Cache implementation using Redis.
func NewRedisCache(ctx context.Context, endpoint string, options ...RedisCacheOption) *RedisCache {
	cache := &RedisCache{
		&redis.Pool{
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialContext(ctx, "tcp", endpoint)
			},
		},
	}
	for _, option := range options {
		option(cache)
	}
	return cache
}

// Returns the search result stored in Redis for direction and n, if
// present.
func (r *RedisCache) GetResult(ctx context.Context, direction string, n uint64) (uint64, bool, error) {
	conn := r.Get()
	defer conn.Close()

	result, err := redis.Uint64(conn.Do("GET", Key(direction, n)))
	if err == redis.ErrNil {
		// A cache miss is *NOT* an error to propagate
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return result, true, nil
}

// Store the search result in Redis for direction and n.
func (r *RedisCache) SetResult(ctx context.Context, direction string, n uint64, result uint64) error {
	conn := r.Get()
	defer conn.Close()
	_, err := conn.Do("SET", Key(direction, n), strconv.FormatUint(result, 10))
	if err != nil {
		return err
	}
	return nil
}
