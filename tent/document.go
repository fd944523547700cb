package tent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Upper bound on any response body read during resolution
const maxBodySize = 2 * 1024 * 1024

// A fetched HTTP resource: the inputs the link extractor and the JSON decoders work from.
type Document struct {
	StatusCode int
	Header     http.Header
	// location the body was actually served from, after following redirects
	FinalURL *url.URL
	Body     []byte
}

// Reports whether the response had a 2xx status code.
func (d *Document) OK() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}

// Does a single bounded GET request. Non-2xx responses are not treated as errors here; callers decide.
func (r *BaseResolver) get(ctx context.Context, u string, accept string, params url.Values) (*Document, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("outbound rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("constructing HTTP request: %w", err)
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, vals := range params {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxBodySize {
		return nil, fmt.Errorf("response body too large: %d bytes", resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body too large")
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &Document{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		FinalURL:   finalURL,
		Body:       body,
	}, nil
}
