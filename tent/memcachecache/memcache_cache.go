package memcachecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tentrss/tentrss/tent"

	"github.com/bradfitz/gomemcache/memcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// memcached treats expirations longer than this as absolute unix timestamps
const maxRelativeExpiry = 30 * 24 * 60 * 60

// longest key memcached accepts
const maxKeyLength = 250

var tracer = otel.Tracer("memcachecache")

// Uses memcached as a tent.Cache. Values are stored as JSON.
type MemcacheCache struct {
	mcd *memcache.Client
}

var _ tent.Cache = (*MemcacheCache)(nil)

// Creates a cache against one or more memcached servers ("host:port"). No connection is made until first use.
func NewMemcacheCache(timeout time.Duration, servers ...string) *MemcacheCache {
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &MemcacheCache{
		mcd: client,
	}
}

// Checks connectivity to every configured server.
func (c *MemcacheCache) Ping() error {
	return c.mcd.Ping()
}

// Returns a key memcached will accept. Entity URIs are arbitrary strings, so overlong keys or keys with whitespace or control characters are replaced with a digest.
func itemKey(key string) string {
	if legalKey(key) {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return tent.CacheKeyPrefix + hex.EncodeToString(sum[:])
}

func legalKey(key string) bool {
	if len(key) == 0 || len(key) > maxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

// Converts a TTL to a memcached expiration (in seconds). Zero means no expiry.
func expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs > maxRelativeExpiry {
		// clamp expiry at 30 days minus a minute for memcached
		secs = maxRelativeExpiry - 60
	}
	return int32(secs)
}

func (c *MemcacheCache) Get(ctx context.Context, key string) ([]tent.Post, bool, error) {
	_, span := tracer.Start(ctx, "memcacheGet")
	defer span.End()

	item, err := c.mcd.Get(itemKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		span.SetAttributes(attribute.Bool("cache", false))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memcached read failed: %w", err)
	}

	posts, err := tent.DecodePosts(item.Value)
	if err != nil {
		// undecodable entries are dropped and treated as absent
		c.mcd.Delete(item.Key)
		return nil, false, nil
	}
	span.SetAttributes(attribute.Bool("cache", true))
	return posts, true, nil
}

func (c *MemcacheCache) Set(ctx context.Context, key string, posts []tent.Post, ttl time.Duration) error {
	_, span := tracer.Start(ctx, "memcacheSet")
	defer span.End()

	blob, err := tent.EncodePosts(posts)
	if err != nil {
		return err
	}
	err = c.mcd.Set(&memcache.Item{
		Key:        itemKey(key),
		Value:      blob,
		Expiration: expiration(ttl),
	})
	if err != nil {
		return fmt.Errorf("memcached write failed: %w", err)
	}
	return nil
}

func (c *MemcacheCache) Delete(ctx context.Context, key string) error {
	err := c.mcd.Delete(itemKey(key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcached delete failed: %w", err)
	}
	return nil
}
