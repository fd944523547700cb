package tent

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
	"github.com/antchfx/htmlquery"
)

// An advertised link to a profile document. URL is absolute once returned from ExtractProfileLinks.
type ProfileLink struct {
	URL string
	Rel string
}

var linkSplitRegex = regexp.MustCompile(`,\s*`)
var linkValueRegex = regexp.MustCompile(`^<([^>]+)>; rel="(https?://[^"]+)"\s*$`)

// Parses an HTTP Link header value into (unresolved) links. Segments which don't have the form `<URL>; rel="REL"` are skipped.
func ParseLinkHeader(value string) []ProfileLink {
	var out []ProfileLink
	if value == "" {
		return out
	}
	for _, seg := range linkSplitRegex.Split(value, -1) {
		m := linkValueRegex.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		out = append(out, ProfileLink{URL: m[1], Rel: m[2]})
	}
	return out
}

// Finds all markup <link> elements with the given relation. The rel attribute is treated as a space-separated list of tokens.
func parseMarkupLinks(body []byte, rel string) []ProfileLink {
	var out []ProfileLink
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return out
	}
	for _, node := range htmlquery.Find(doc, "//link[@rel][@href]") {
		if !hasRelToken(htmlquery.SelectAttr(node, "rel"), rel) {
			continue
		}
		out = append(out, ProfileLink{URL: htmlquery.SelectAttr(node, "href"), Rel: rel})
	}
	return out
}

func hasRelToken(attr, rel string) bool {
	for _, tok := range strings.Fields(attr) {
		if tok == rel {
			return true
		}
	}
	return false
}

// Resolves href against base, returning a normalized absolute URL.
func absoluteURL(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if !u.IsAbs() {
		return "", false
	}
	return purell.NormalizeURL(u, purell.FlagsSafe), true
}

// Collects profile links advertised by an entity document, in order: Link header entries first, then markup <link> elements. Every URL is made absolute against the document's final URL.
//
// The result is not de-duplicated. An empty result is not an error at this layer.
func ExtractProfileLinks(doc *Document) []ProfileLink {
	var found []ProfileLink

	header := strings.Join(doc.Header.Values("Link"), ", ")
	for _, l := range ParseLinkHeader(header) {
		if l.Rel == ProfileRel {
			found = append(found, l)
		}
	}
	found = append(found, parseMarkupLinks(doc.Body, ProfileRel)...)

	out := make([]ProfileLink, 0, len(found))
	for _, l := range found {
		abs, ok := absoluteURL(doc.FinalURL, l.URL)
		if !ok {
			slog.Debug("skipping unresolvable profile link", "href", l.URL)
			continue
		}
		out = append(out, ProfileLink{URL: abs, Rel: l.Rel})
	}
	return out
}
