package memcachecache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tentrss/tentrss/tent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemKey(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("posts:https://alice.example.com", itemKey("posts:https://alice.example.com"))

	long := tent.CacheKey("https://alice.example.com/" + strings.Repeat("a", 300))
	hashed := itemKey(long)
	assert.True(strings.HasPrefix(hashed, "posts:"))
	assert.True(legalKey(hashed))
	assert.Equal(hashed, itemKey(long))

	spaced := itemKey(tent.CacheKey("https://alice.example.com/with space"))
	assert.True(legalKey(spaced))
	assert.NotEqual(spaced, hashed)

	assert.False(legalKey(""))
	assert.False(legalKey("posts:tab\there"))
}

func TestExpiration(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int32(0), expiration(0))
	assert.Equal(int32(0), expiration(-time.Second))
	assert.Equal(int32(1), expiration(10*time.Millisecond))
	assert.Equal(int32(300), expiration(300*time.Second))
	assert.Equal(int32(30*24*60*60-60), expiration(365*24*time.Hour))
}

// NOTE: needs a running memcached; set TENTRSS_TEST_MEMCACHE (eg, "localhost:11211") to enable
func TestMemcacheCacheLive(t *testing.T) {
	server := os.Getenv("TENTRSS_TEST_MEMCACHE")
	if server == "" {
		t.Skip("TENTRSS_TEST_MEMCACHE not set; skipping live memcached test")
	}
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	c := NewMemcacheCache(time.Second, server)
	require.NoError(c.Ping())

	key := tent.CacheKey("https://live-test.example.com/" + time.Now().Format(time.RFC3339Nano))
	posts := []tent.Post{{
		ID:          "abc",
		PublishedAt: 1000000000,
		GUID:        "https://live-test.example.com/tent/posts/abc",
		RFC822Time:  tent.FormatRFC822(1000000000),
	}}

	_, found, err := c.Get(ctx, key)
	require.NoError(err)
	assert.False(found)

	require.NoError(c.Set(ctx, key, posts, time.Minute))
	out, found, err := c.Get(ctx, key)
	require.NoError(err)
	assert.True(found)
	assert.Equal(posts, out)

	require.NoError(c.Delete(ctx, key))
	require.NoError(c.Delete(ctx, key))
	_, found, err = c.Get(ctx, key)
	require.NoError(err)
	assert.False(found)
}
