package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// DefaultContentKeyPrefix namespaces content cache keys
const DefaultContentKeyPrefix = "dhikr:content:"

// maxCachedValueSize rejects values that could only come from a broken provider response
const maxCachedValueSize = 1024 * 1024

// RedisContentCache stores resolved verses in Redis, msgpack encoded.
// Entries carry no TTL; SET overwrites, so concurrent misses are last-write-wins.
type RedisContentCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.SugaredLogger
}

// NewRedisContentCache creates a Redis-backed content cache
func NewRedisContentCache(addr, password string, db, poolSize int, keyPrefix string, logger *zap.SugaredLogger) *RedisContentCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	if keyPrefix == "" {
		keyPrefix = DefaultContentKeyPrefix
	}

	return &RedisContentCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Ping tests the Redis connection
func (rc *RedisContentCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (rc *RedisContentCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisContentCache) key(reference, lang string) string {
	return rc.keyPrefix + lang + ":" + reference
}

// Get returns the cached entry, or nil with no error on a miss
func (rc *RedisContentCache) Get(ctx context.Context, reference, lang string) (*core.CachedContent, error) {
	data, err := rc.client.Get(ctx, rc.key(reference, lang)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMisses.WithLabelValues("redis").Inc()
			return nil, nil
		}
		metrics.CacheErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("failed to get cached content: %w", err)
	}

	var cc core.CachedContent
	if err := msgpack.Unmarshal(data, &cc); err != nil {
		rc.logger.Warnw("Discarding undecodable cache entry", "reference", reference, "lang", lang, "error", err)
		metrics.CacheErrors.WithLabelValues("redis", "unmarshal").Inc()
		return nil, nil
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return &cc, nil
}

// Upsert stores the entry under its (reference, lang) key
func (rc *RedisContentCache) Upsert(ctx context.Context, cc core.CachedContent) error {
	if cc.FetchedAt.IsZero() {
		cc.FetchedAt = time.Now().UTC()
	}

	data, err := msgpack.Marshal(&cc)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "marshal").Inc()
		return fmt.Errorf("failed to encode cached content: %w", err)
	}
	if len(data) > maxCachedValueSize {
		metrics.CacheErrors.WithLabelValues("redis", "size_limit").Inc()
		return fmt.Errorf("cache value size %d bytes exceeds maximum allowed size %d bytes", len(data), maxCachedValueSize)
	}

	if err := rc.client.Set(ctx, rc.key(cc.Reference, cc.Lang), data, 0).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "set").Inc()
		return fmt.Errorf("failed to set cached content: %w", err)
	}
	return nil
}
