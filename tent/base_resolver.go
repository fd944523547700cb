package tent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Resolves entities directly over the network, with no caching.
//
// The zero value ('BaseResolver{}') is a usable Resolver, though production code should supply an HTTPClient which refuses private network destinations.
type BaseResolver struct {
	// HTTP client used for all requests. If nil, http.DefaultClient is used
	HTTPClient *http.Client
	// Bound on each individual network call. If zero, DefaultTimeout is used
	Timeout time.Duration
	// If not nil, every outbound request waits on this limiter first
	Limiter *rate.Limiter
	// If nil, slog.Default() is used
	Logger *slog.Logger
	// User-Agent header for all requests; left unset if empty
	UserAgent string
	// Number of posts requested per resolution. If zero, DefaultPostLimit is used
	PostLimit int
}

var _ Resolver = (*BaseResolver)(nil)

func (r *BaseResolver) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r *BaseResolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *BaseResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Fetches the entity document itself. The entity is expected to serve HTML, but the body is not interpreted here. Non-2xx responses are returned without error, since their Link headers may still be useful.
func (r *BaseResolver) FetchEntity(ctx context.Context, uri string) (*Document, error) {
	ctx, span := tracer.Start(ctx, "fetchEntity")
	defer span.End()

	doc, err := r.get(ctx, uri, "text/html", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !doc.OK() {
		r.logger().Debug("entity fetch returned non-success status", "uri", uri, "status", doc.StatusCode)
	}
	return doc, nil
}

// Runs the full resolution pipeline for an entity URI: fetch the entity document, extract profile links, resolve API roots from the first usable profile, fetch posts from the first usable API root, and normalize them.
func (r *BaseResolver) Resolve(ctx context.Context, uri string) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "resolve")
	defer span.End()
	span.SetAttributes(attribute.String("uri", uri))

	start := time.Now()
	posts, err := r.resolve(ctx, uri)
	status := resolveStatus(err)
	duration := time.Since(start)

	resolutionCount.WithLabelValues("base", status).Inc()
	resolutionDuration.WithLabelValues("base", status).Observe(duration.Seconds())
	if err != nil {
		span.RecordError(err)
		r.logger().Info("entity resolution failed", "uri", uri, "kind", ErrorKindOf(err), "err", err, "duration", duration)
		return nil, err
	}
	r.logger().Debug("entity resolved", "uri", uri, "posts", len(posts), "duration", duration)
	return posts, nil
}

func (r *BaseResolver) resolve(ctx context.Context, uri string) ([]Post, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}

	doc, err := r.FetchEntity(ctx, uri)
	if err != nil {
		return nil, err
	}

	links := ExtractProfileLinks(doc)
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProfileLinkFound, uri)
	}

	roots, err := r.ResolveProfile(ctx, links)
	if err != nil {
		return nil, err
	}

	root, raws, err := r.FetchPosts(ctx, roots)
	if err != nil {
		return nil, err
	}

	return NormalizePosts(root, raws)
}

// BaseResolver holds no state; this is a no-op.
func (r *BaseResolver) Purge(ctx context.Context, uri string) error {
	return nil
}

// Metrics label for the outcome of a resolution.
func resolveStatus(err error) string {
	if err == nil {
		return "success"
	}
	if kind := ErrorKindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
