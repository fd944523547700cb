package tent

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	Posts   []Post
	Expires time.Time
}

// In-process Cache, backed by a size-bounded LRU.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
}

var _ Cache = (*MemoryCache)(nil)

// Capacity of zero means unlimited size. maxTTL bounds the lifetime of every entry regardless of the TTL passed to Set; zero means no bound.
func NewMemoryCache(capacity int, maxTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](capacity, nil, maxTTL),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]Post, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.Expires.IsZero() && time.Now().After(entry.Expires) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return slices.Clone(entry.Posts), true, nil
}

// A ttl of zero or less stores the entry without a per-entry expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, posts []Post, ttl time.Duration) error {
	entry := memoryEntry{Posts: slices.Clone(posts)}
	if ttl > 0 {
		entry.Expires = time.Now().Add(ttl)
	}
	c.lru.Add(key, entry)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Number of entries currently held, including any not yet evicted after expiry.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
