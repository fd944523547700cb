package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tentrss/tentrss/tent"

	"github.com/labstack/echo/v4"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceURI = "https://alice.tent.is"

func testPosts() []tent.Post {
	raws := []tent.RawPost{
		{
			"id":           json.RawMessage(`"abc"`),
			"published_at": json.RawMessage(`1000000000`),
			"content":      json.RawMessage(`{"text": "hello <world> & friends"}`),
		},
		{
			"id":           json.RawMessage(`"def"`),
			"published_at": json.RawMessage(`999990000`),
			"content":      json.RawMessage(`{"text": "older post"}`),
		},
	}
	posts, err := tent.NormalizePosts("https://alice.tent.is/tent", raws)
	if err != nil {
		panic(err)
	}
	return posts
}

func testServer(t *testing.T) (*Server, *tent.MockResolver) {
	mock := tent.NewMockResolver()
	mock.Insert(aliceURI, testPosts())
	mock.Fail("https://nolinks.example.com", fmt.Errorf("%w: https://nolinks.example.com", tent.ErrNoProfileLinkFound))

	srv, err := NewServer(Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Resolver: &mock,
	})
	require.NoError(t, err)
	return srv, &mock
}

func doGet(srv *Server, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestWebHomeIndex(t *testing.T) {
	assert := assert.New(t)
	srv, mock := testServer(t)

	for _, target := range []string{"/", "/?uri="} {
		rec := doGet(srv, target, nil)
		assert.Equal(http.StatusOK, rec.Code)
		assert.Contains(rec.Body.String(), `name="uri"`)
	}
	assert.Equal(0, mock.CallCount(""))
}

func TestWebHomeFeedPage(t *testing.T) {
	assert := assert.New(t)
	srv, _ := testServer(t)

	rec := doGet(srv, "/?uri="+url.QueryEscape(aliceURI), nil)
	assert.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(body, "hello &lt;world&gt; &amp; friends")
	assert.Contains(body, "https://alice.tent.is/posts/abc")
	assert.Contains(body, "Sun, 09 Sep 2001 01:46:40 +0000")
	assert.Contains(body, "http://example.com/feed?uri=https%3A%2F%2Falice.tent.is")
}

func TestWebHomeError(t *testing.T) {
	assert := assert.New(t)
	srv, _ := testServer(t)

	rec := doGet(srv, "/?uri="+url.QueryEscape("https://nolinks.example.com"), nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Contains(rec.Body.String(), "No profile link found")

	rec = doGet(srv, "/?uri="+url.QueryEscape("https://down.example.com"), nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Contains(rec.Body.String(), "connect to https://down.example.com")
}

func TestWebFeed(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	srv, mock := testServer(t)

	rec := doGet(srv, "/feed?uri="+url.QueryEscape(aliceURI), nil)
	require.Equal(http.StatusOK, rec.Code)
	assert.True(strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "application/xml"))

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(err)
	assert.Equal("rss", feed.FeedType)
	assert.Equal(aliceURI, feed.Title)
	require.Equal(2, len(feed.Items))

	item := feed.Items[0]
	assert.Equal("hello <world> & friends", item.Description)
	assert.Equal("https://alice.tent.is/tent/posts/abc", item.GUID)
	assert.Equal("https://alice.tent.is/posts/abc", item.Link)
	require.NotNil(item.PublishedParsed)
	assert.Equal(int64(1000000000), item.PublishedParsed.Unix())

	assert.Equal("https://alice.tent.is/tent/posts/def", feed.Items[1].GUID)

	// served from the resolver once per request; caching is the resolver's job
	doGet(srv, "/feed?uri="+url.QueryEscape(aliceURI), nil)
	assert.Equal(2, mock.CallCount(aliceURI))
}

func TestWebFeedErrors(t *testing.T) {
	assert := assert.New(t)
	srv, _ := testServer(t)

	rec := doGet(srv, "/feed", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Contains(rec.Body.String(), "No URI!")

	rec = doGet(srv, "/feed?uri="+url.QueryEscape("https://nolinks.example.com"), nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Contains(rec.Body.String(), "No profile link found")
}

func TestFeedURL(t *testing.T) {
	assert := assert.New(t)
	e := echo.New()

	build := func(target string, header http.Header) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		for k, vals := range header {
			req.Header[k] = vals
		}
		c := e.NewContext(req, httptest.NewRecorder())
		return feedURL(c, aliceURI)
	}

	assert.Equal("http://example.com/feed?uri=https%3A%2F%2Falice.tent.is", build("/?uri=x", nil))
	assert.Equal("http://example.com/tentrss/feed?uri=https%3A%2F%2Falice.tent.is", build("/?uri=x", http.Header{
		"X-Original-Request-Uri": []string{"/tentrss/?uri=x"},
	}))
	assert.Equal("http://example.com/apps/feed?uri=https%3A%2F%2Falice.tent.is", build("/?uri=x", http.Header{
		"X-Original-Request-Uri": []string{"/apps/tentrss"},
	}))
	assert.Equal("https://example.com/feed?uri=https%3A%2F%2Falice.tent.is", build("/", http.Header{
		"X-Forwarded-Proto": []string{"https"},
	}))
}

func TestHealthAndStatic(t *testing.T) {
	assert := assert.New(t)
	srv, _ := testServer(t)

	rec := doGet(srv, "/_health", nil)
	assert.Equal(http.StatusOK, rec.Code)
	var status GenericStatus
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("ok", status.Status)
	assert.Equal("tentrss", status.Daemon)

	rec = doGet(srv, "/robots.txt", nil)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "Disallow: /feed")

	rec = doGet(srv, "/no-such-page", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
}
