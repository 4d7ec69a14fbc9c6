// Package crawl: URL resolution rules.
// Provides helpers to resolve and name chapter URLs found on a ToC page.
package crawl

import (
	"net/url"
	"path"
	"strings"
)

// skipPrefixes are hrefs that never point at a chapter page.
var skipPrefixes = []string{"mailto:", "javascript:", "tel:", "#"}

// IsNavigable reports whether href could point at a fetchable page.
func IsNavigable(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	for _, p := range skipPrefixes {
		if strings.HasPrefix(h, p) {
			return false
		}
	}
	return true
}

// Resolve resolves href against base using RFC 3986 reference resolution.
// The fragment is dropped. It returns false for hrefs that do not parse.
func Resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), true
}

// LegacyJoin concatenates base and href as plain strings. Kept for sites
// whose links only work with the old behavior; prefer Resolve.
func LegacyJoin(base, href string) string {
	return base + href
}

// LastSegment returns the part of the URL path after the final '/'.
// Query and fragment are not part of the result.
func LastSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		i := strings.LastIndex(rawURL, "/")
		return rawURL[i+1:]
	}
	p := parsed.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return path.Base(p)
}
