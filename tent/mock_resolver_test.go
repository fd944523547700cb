package tent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockResolver(t *testing.T) {
	var err error
	assert := assert.New(t)
	ctx := context.Background()
	m := NewMockResolver()

	// first, empty resolver
	_, err = m.Resolve(ctx, "https://alice.example.com")
	assert.ErrorIs(err, ErrConnectionFailed)
	_, err = m.Resolve(ctx, "")
	assert.ErrorIs(err, ErrEmptyURI)

	posts := samplePostList("https://alice.example.com/tent", "a")
	m.Insert("https://alice.example.com", posts)
	m.Fail("https://bob.example.com", ErrNoProfileLinkFound)

	out, err := m.Resolve(ctx, "https://alice.example.com")
	assert.NoError(err)
	assert.Equal(posts, out)
	_, err = m.Resolve(ctx, "https://bob.example.com")
	assert.ErrorIs(err, ErrNoProfileLinkFound)

	assert.Equal(2, m.CallCount("https://alice.example.com"))
	assert.Equal(1, m.CallCount("https://bob.example.com"))

	assert.NoError(m.Purge(ctx, "https://alice.example.com"))
	assert.Equal(1, m.Purged["https://alice.example.com"])
}

func TestErrorKindOf(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(ErrorKind(""), ErrorKindOf(nil))
	assert.Equal(ErrorKind(""), ErrorKindOf(context.Canceled))
	assert.Equal(KindNoAPIRootsFound, ErrorKindOf(ErrNoAPIRootsFound))
	assert.Equal("Internal error", UserMessage("x", context.Canceled))
	assert.Equal("No API roots found!", UserMessage("x", ErrNoAPIRootsFound))
	assert.Equal("success", resolveStatus(nil))
	assert.Equal("timeout", resolveStatus(context.DeadlineExceeded))
	assert.Equal("PostsUnavailable", resolveStatus(ErrPostsUnavailable))
}
