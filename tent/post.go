package tent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A post ready for display: the raw post plus derived identifiers and a formatted timestamp.
type Post struct {
	ID          string `json:"id"`
	Entity      string `json:"entity,omitempty"`
	Text        string `json:"text,omitempty"`
	PublishedAt int64  `json:"published_at"`

	// "{root}/posts/{id}"; stable, but returns raw JSON rather than a web page
	GUID string `json:"post_guid"`
	// web permalink; only known for Tent.is hosted entities
	Link string `json:"post_link,omitempty"`
	// PublishedAt as an RFC 822 date-time, in UTC
	RFC822Time string `json:"rfc822_time"`

	Raw RawPost `json:"raw,omitempty"`
}

// Timestamp of the post, in UTC.
func (p *Post) Published() time.Time {
	return time.Unix(p.PublishedAt, 0).UTC()
}

// RFC 822 (with four-digit year) layout. The true origin timezone of a post is unknown, so times are always rendered in UTC with a literal +0000 offset.
const RFC822Layout = "Mon, 02 Jan 2006 15:04:05 +0000"

var tentIsRootRegex = regexp.MustCompile(`^https://(\w+)\.tent\.is/tent$`)

// Returns the browser permalink for a post, if the API root is a Tent.is user root ("https://{user}.tent.is/tent"). Otherwise returns an empty string.
func Permalink(root, id string) string {
	m := tentIsRootRegex.FindStringSubmatch(root)
	if m == nil {
		return ""
	}
	return "https://" + m[1] + ".tent.is/posts/" + id
}

func FormatRFC822(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(RFC822Layout)
}

func postID(raw RawPost) (string, error) {
	val, ok := raw["id"]
	if !ok {
		return "", fmt.Errorf("missing id")
	}
	val = bytes.TrimSpace(val)
	if len(val) > 0 && val[0] == '"' {
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		if s == "" {
			return "", fmt.Errorf("empty id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err != nil || n == "" {
		return "", fmt.Errorf("invalid id: %s", string(val))
	}
	return n.String(), nil
}

func postPublishedAt(raw RawPost) (int64, error) {
	val, ok := raw["published_at"]
	if !ok {
		return 0, fmt.Errorf("missing published_at")
	}
	val = bytes.TrimSpace(val)
	if len(val) > 0 && val[0] == '"' {
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return 0, fmt.Errorf("invalid published_at: %w", err)
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric published_at: %q", s)
		}
		return ts, nil
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err != nil {
		return 0, fmt.Errorf("non-numeric published_at: %s", string(val))
	}
	if ts, err := n.Int64(); err == nil {
		return ts, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("non-numeric published_at: %s", n)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("published_at out of range: %s", n)
	}
	return int64(f), nil
}

// Copy of raw with every value in the compact, HTML-escaped form encoding/json writes RawMessage values in. Posts then survive a trip through a JSON-encoded cache unchanged.
func canonicalRaw(raw RawPost) (RawPost, error) {
	out := make(RawPost, len(raw))
	for k, v := range raw {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %q field: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// Normalizes a single raw post fetched from root.
func NormalizePost(root string, raw RawPost) (Post, error) {
	id, err := postID(raw)
	if err != nil {
		return Post{}, err
	}
	ts, err := postPublishedAt(raw)
	if err != nil {
		return Post{}, err
	}
	canon, err := canonicalRaw(raw)
	if err != nil {
		return Post{}, err
	}

	p := Post{
		ID:          id,
		PublishedAt: ts,
		GUID:        root + "/posts/" + id,
		Link:        Permalink(root, id),
		RFC822Time:  FormatRFC822(ts),
		Raw:         canon,
	}

	// entity and content are informational; ignore unexpected shapes
	if ent, ok := raw["entity"]; ok {
		_ = json.Unmarshal(ent, &p.Entity)
	}
	if content, ok := raw["content"]; ok {
		var c struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(content, &c) == nil {
			p.Text = c.Text
		}
	}
	return p, nil
}

// Normalizes a batch of raw posts, preserving order. Either every post normalizes or an error wrapping ErrMalformedPost is returned; partial results are never returned.
func NormalizePosts(root string, raws []RawPost) ([]Post, error) {
	out := make([]Post, 0, len(raws))
	for i, raw := range raws {
		p, err := NormalizePost(root, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: post %d from %s: %w", ErrMalformedPost, i, root, err)
		}
		out = append(out, p)
	}
	return out, nil
}
