package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tentrss/tentrss/tent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NOTE: needs a running redis; set TENTRSS_TEST_REDIS_URL (eg, "redis://localhost:6379/0") to enable
func TestRedisCacheLive(t *testing.T) {
	redisURL := os.Getenv("TENTRSS_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TENTRSS_TEST_REDIS_URL not set; skipping live redis test")
	}
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	c, err := NewRedisCache(redisURL, time.Second, 100)
	require.NoError(err)

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

	// failures pass through a CacheResolver without being stored
	inner := tent.NewMockResolver()
	res := tent.NewCacheResolver(&inner, c, time.Minute)
	out, err = res.Resolve(ctx, "https://live-test.example.com/"+time.Now().Format(time.RFC3339Nano))
	assert.ErrorIs(err, tent.ErrConnectionFailed)
	assert.Nil(out)

	require.NoError(c.Delete(ctx, key))
	require.NoError(c.Delete(ctx, key))
	_, found, err = c.Get(ctx, key)
	require.NoError(err)
	assert.False(found)
}

func TestRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url", time.Second, 100)
	assert.Error(t, err)
}
