package tokenizer

import "net/url"

// DefragURL strips the fragment from a URL string, matching
// urllib.parse.urldefrag used throughout original_source/TieredIndex.py
// before a URL is used as a doc identity or link target.
func DefragURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}

func defragURL(raw string) string { return DefragURL(raw) }

// resolveURL resolves href against base, the way a browser resolves an
// <a href> relative to its containing page.
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	refURL, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
