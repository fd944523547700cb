package tent

import (
	"context"
	"time"
)

// Media type requested from profile and posts endpoints
const MediaType = "application/vnd.tent.v0+json"

// Link relation advertising an entity's profile document
const ProfileRel = "https://tent.io/rels/profile"

// Profile key holding the core info block, which lists the entity's API roots ("servers")
const CoreInfoType = "https://tent.io/types/info/core/v0.1.0"

// Post type requested from API roots
const StatusPostType = "https://tent.io/types/post/status/v0.1.0"

// Number of posts requested from an API root
const DefaultPostLimit = 10

// Bound on every individual network call made during resolution
const DefaultTimeout = 5 * time.Second

// How long successful resolutions are cached by default
const DefaultCacheTTL = 300 * time.Second

// Prefix of all resolution cache keys
const CacheKeyPrefix = "posts:"

// Resolves an entity URI to its latest posts.
//
// Implementations can be nested: a caching implementation wraps a network implementation, and so on.
type Resolver interface {
	Resolve(ctx context.Context, uri string) ([]Post, error)

	// Flushes any cached result for the indicated entity. Implementations without caching can ignore this.
	Purge(ctx context.Context, uri string) error
}

// Cache key for an entity URI. The URI is used verbatim.
func CacheKey(uri string) string {
	return CacheKeyPrefix + uri
}
