package main

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/tentrss/tentrss/tent"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"
)

// Absolute URL of the RSS feed for an entity, relative to the page currently being served.
//
// When running behind a path-rewriting proxy, the proxy should pass the path it received in an X-Original-Request-URI header, so the feed URL points back through the proxy.
func feedURL(c echo.Context, uri string) string {
	req := c.Request()
	base := &url.URL{
		Scheme: c.Scheme(),
		Host:   req.Host,
		Path:   "/",
	}
	if orig := req.Header.Get("X-Original-Request-URI"); orig != "" {
		if ref, err := url.Parse(orig); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	feed := &url.URL{
		Path:     "./feed",
		RawQuery: "uri=" + url.QueryEscape(uri),
	}
	return base.ResolveReference(feed).String()
}

// Resolves with a deadline of its own. The request context is not used for cancellation, so a visitor giving up doesn't throw away a resolution which is about to be cached.
func (srv *Server) resolve(c echo.Context, uri string) ([]tent.Post, error) {
	ctx := context.WithoutCancel(c.Request().Context())
	ctx, cancel := context.WithTimeout(ctx, srv.resolveTimeout)
	defer cancel()
	return srv.resolver.Resolve(ctx, uri)
}

func (srv *Server) renderResolveError(c echo.Context, uri string, err error) error {
	kind := tent.ErrorKindOf(err)
	if kind == "" {
		srv.logger.Warn("unexpected resolution failure", "uri", uri, "err", err)
	}
	data := pongo2.Context{
		"uri":        uri,
		"error":      tent.UserMessage(uri, err),
		"errorKind":  string(kind),
		"statusCode": http.StatusNotFound,
	}
	return c.Render(http.StatusNotFound, "error.html", data)
}

func (srv *Server) WebHome(c echo.Context) error {
	uri := c.QueryParam("uri")
	if uri == "" {
		return c.Render(http.StatusOK, "index.html", pongo2.Context{})
	}

	posts, err := srv.resolve(c, uri)
	if err != nil {
		return srv.renderResolveError(c, uri, err)
	}

	data := pongo2.Context{
		"uri":     uri,
		"posts":   posts,
		"feedURL": feedURL(c, uri),
	}
	return c.Render(http.StatusOK, "feed.html", data)
}

func (srv *Server) WebFeed(c echo.Context) error {
	uri := c.QueryParam("uri")

	posts, err := srv.resolve(c, uri)
	if err != nil {
		return srv.renderResolveError(c, uri, err)
	}

	data := pongo2.Context{
		"uri":     uri,
		"posts":   posts,
		"feedURL": feedURL(c, uri),
	}
	var buf bytes.Buffer
	if err := c.Echo().Renderer.Render(&buf, "feed.xml", data, c); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", buf.Bytes())
}
