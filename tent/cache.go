package tent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Key/value store for resolution results, with per-entry expiry.
//
// Get returns found=false (and no error) for absent or expired keys. An error means the backend itself failed.
type Cache interface {
	Get(ctx context.Context, key string) ([]Post, bool, error)
	Set(ctx context.Context, key string, posts []Post, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Serialized form of a resolution result, for caches which store bytes. A nil list encodes as an empty one, so a cached success is never mistaken for an absent entry.
func EncodePosts(posts []Post) ([]byte, error) {
	if posts == nil {
		posts = []Post{}
	}
	return json.Marshal(posts)
}

func DecodePosts(b []byte) ([]Post, error) {
	var posts []Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// Wraps another Resolver, caching successful resolutions.
//
// Failures are never cached. Concurrent misses for the same entity are not coalesced; each runs the full pipeline and the last write wins.
type CacheResolver struct {
	Inner Resolver
	Cache Cache
	// How long successful results are kept. If zero, DefaultCacheTTL is used
	TTL time.Duration
	// If nil, slog.Default() is used
	Logger *slog.Logger
}

var _ Resolver = (*CacheResolver)(nil)

func NewCacheResolver(inner Resolver, cache Cache, ttl time.Duration) *CacheResolver {
	return &CacheResolver{
		Inner: inner,
		Cache: cache,
		TTL:   ttl,
	}
}

func (r *CacheResolver) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultCacheTTL
}

func (r *CacheResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *CacheResolver) Resolve(ctx context.Context, uri string) ([]Post, error) {
	// checked before the cache so an empty URI never touches any backend
	if uri == "" {
		return nil, ErrEmptyURI
	}

	ctx, span := tracer.Start(ctx, "cachedResolve")
	defer span.End()

	key := CacheKey(uri)
	start := time.Now()

	posts, found, err := r.Cache.Get(ctx, key)
	if err != nil {
		// a broken cache degrades to uncached resolution
		cacheErrors.WithLabelValues("get").Inc()
		r.logger().Warn("resolution cache read failed", "key", key, "err", err)
	} else if found {
		cacheHits.Inc()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		resolutionCount.WithLabelValues("cache", "hit").Inc()
		resolutionDuration.WithLabelValues("cache", "hit").Observe(time.Since(start).Seconds())
		return posts, nil
	}
	cacheMisses.Inc()
	span.SetAttributes(attribute.Bool("cache_hit", false))

	posts, err = r.Inner.Resolve(ctx, uri)
	status := resolveStatus(err)
	resolutionCount.WithLabelValues("cache", status).Inc()
	resolutionDuration.WithLabelValues("cache", status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := r.Cache.Set(ctx, key, posts, r.ttl()); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		r.logger().Warn("resolution cache write failed", "key", key, "err", err)
	}
	return posts, nil
}

func (r *CacheResolver) Purge(ctx context.Context, uri string) error {
	if err := r.Cache.Delete(ctx, CacheKey(uri)); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return r.Inner.Purge(ctx, uri)
}
