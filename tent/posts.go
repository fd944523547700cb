package tent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// A post exactly as returned by an API root. Fields are kept as raw JSON and passed through untouched.
type RawPost map[string]json.RawMessage

func (r *BaseResolver) postsQuery() url.Values {
	limit := r.PostLimit
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	return url.Values{
		"limit":      []string{strconv.Itoa(limit)},
		"post_types": []string{StatusPostType},
	}
}

func (r *BaseResolver) fetchPostsFrom(ctx context.Context, root string) ([]RawPost, error) {
	doc, err := r.get(ctx, root+"/posts", MediaType, r.postsQuery())
	if err != nil {
		return nil, err
	}
	if !doc.OK() {
		return nil, fmt.Errorf("posts fetch HTTP status: %d", doc.StatusCode)
	}
	var posts []RawPost
	if err := json.Unmarshal(doc.Body, &posts); err != nil {
		return nil, fmt.Errorf("failed parse of posts JSON: %w", err)
	}
	if posts == nil {
		return nil, errors.New("posts response was not a JSON list")
	}
	for i, p := range posts {
		if p == nil {
			return nil, fmt.Errorf("posts response entry %d was not a JSON object", i)
		}
	}
	return posts, nil
}

// Queries API roots in order for recent status posts. The first root to answer with a parseable post list wins; its URL is returned alongside the posts, as it is needed to build post GUIDs and permalinks.
func (r *BaseResolver) FetchPosts(ctx context.Context, roots []string) (string, []RawPost, error) {
	ctx, span := tracer.Start(ctx, "fetchPosts")
	defer span.End()

	if len(roots) == 0 {
		return "", nil, fmt.Errorf("%w: no API roots", ErrNoAPIRootsFound)
	}

	posts, root, err := firstSuccess(ctx, roots, r.fetchPostsFrom, func(root string, err error) {
		candidateRejections.WithLabelValues("posts").Inc()
		r.logger().Debug("API root rejected", "root", root, "err", err)
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: every API root failed: %w", ErrPostsUnavailable, err)
	}
	return root, posts, nil
}
