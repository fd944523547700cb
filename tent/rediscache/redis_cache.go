package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tentrss/tentrss/tent"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// prefix string for all the Redis keys this cache uses
var redisCachePrefix string = "tentrss/"

// Uses redis as a tent.Cache. Values are stored as JSON.
//
// Includes an in-process LRU cache as well (provided by the redis client library), for hot keys (popular entities).
type RedisCache struct {
	posts *cache.Cache
}

var _ tent.Cache = (*RedisCache)(nil)

// Creates a new redis-backed cache.
//
// `redisURL` contains all the redis connection config options.
// `localTTL` bounds how long entries are served from the in-process cache, and should be no longer than the TTL used for writes.
// `lruSize` is the size of the in-process cache. 10000 is a reasonable default; zero disables it.
func NewRedisCache(redisURL string, localTTL time.Duration, lruSize int) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not configure redis resolution cache: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis resolution cache: %w", err)
	}
	opts := cache.Options{
		Redis: rdb,
	}
	if lruSize > 0 && localTTL > 0 {
		opts.LocalCache = cache.NewTinyLFU(lruSize, localTTL)
	}
	return &RedisCache{
		posts: cache.New(&opts),
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]tent.Post, bool, error) {
	var blob []byte
	err := c.posts.Get(ctx, redisCachePrefix+key, &blob)
	if errors.Is(err, cache.ErrCacheMiss) {
		redisCacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolution cache read failed: %w", err)
	}

	posts, err := tent.DecodePosts(blob)
	if err != nil {
		slog.Warn("dropping undecodable resolution cache entry", "key", key, "err", err)
		c.posts.Delete(ctx, redisCachePrefix+key)
		redisCacheMisses.Inc()
		return nil, false, nil
	}
	redisCacheHits.Inc()
	return posts, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, posts []tent.Post, ttl time.Duration) error {
	blob, err := tent.EncodePosts(posts)
	if err != nil {
		return err
	}
	err = c.posts.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCachePrefix + key,
		Value: blob,
		TTL:   ttl,
	})
	if err != nil {
		return fmt.Errorf("resolution cache write failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.posts.Delete(ctx, redisCachePrefix+key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("resolution cache delete failed: %w", err)
	}
	return nil
}
