package tent

import (
	"context"
	"encoding/json"
	"fmt"
)

// Core info block of a Tent profile document. Only Servers is used for resolution; the other fields are informational.
type CoreInfo struct {
	Entity   string   `json:"entity"`
	Licenses []string `json:"licenses,omitempty"`
	// API roots, in order of preference
	Servers []string `json:"servers"`
}

// Parses a profile document (a JSON object keyed by info type) and returns the core info block.
//
// Returns an error if the body is not a JSON object or has no core info block. A core info block with an empty or missing server list parses successfully.
func ParseProfile(body []byte) (*CoreInfo, error) {
	var profile map[string]json.RawMessage
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed parse of profile JSON: %w", err)
	}
	raw, ok := profile[CoreInfoType]
	if !ok {
		return nil, fmt.Errorf("profile has no core info block")
	}
	var info CoreInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed parse of profile core info: %w", err)
	}
	return &info, nil
}

func (r *BaseResolver) fetchProfile(ctx context.Context, link ProfileLink) (*CoreInfo, error) {
	doc, err := r.get(ctx, link.URL, MediaType, nil)
	if err != nil {
		return nil, err
	}
	if !doc.OK() {
		return nil, fmt.Errorf("profile fetch HTTP status: %d", doc.StatusCode)
	}
	return ParseProfile(doc.Body)
}

// Fetches profile candidates in order and returns the API roots from the first one which can be fetched and parsed. Later candidates are never consulted once one succeeds, even if it lists no API roots.
func (r *BaseResolver) ResolveProfile(ctx context.Context, links []ProfileLink) ([]string, error) {
	ctx, span := tracer.Start(ctx, "resolveProfile")
	defer span.End()

	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no profile candidates", ErrNoAPIRootsFound)
	}

	info, link, err := firstSuccess(ctx, links, r.fetchProfile, func(l ProfileLink, err error) {
		candidateRejections.WithLabelValues("profile").Inc()
		r.logger().Debug("profile candidate rejected", "url", l.URL, "err", err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: every profile candidate failed: %w", ErrNoAPIRootsFound, err)
	}
	if len(info.Servers) == 0 {
		return nil, fmt.Errorf("%w: profile %s lists no servers", ErrNoAPIRootsFound, link.URL)
	}
	return info.Servers, nil
}
