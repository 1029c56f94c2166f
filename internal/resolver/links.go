package resolver

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// linkPattern matches a generic http(s) URL up to the next whitespace.
var linkPattern = regexp.MustCompile(`(?i)https?://\S+`)

// trailingPunct is stripped from the end of links found in prose, so that
// "see https://x.com/d.json." yields the URL without the full stop.
const trailingPunct = `.,;:!?)]}>'"`

// Links returns every http(s) URL in text, left to right, with trailing
// sentence punctuation removed.
func Links(text string) []string {
	matches := linkPattern.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if link := trimLink(m); link != "" {
			links = append(links, link)
		}
	}
	return links
}

// FindJSONLink returns the first URL in text that looks like a JSON
// resource, or "" if there is none.
func FindJSONLink(text string) string {
	for _, link := range Links(text) {
		if IsJSONURL(link) {
			return link
		}
	}
	return ""
}

// FindWebpageLink returns the first URL in text, or "" if there is none.
func FindWebpageLink(text string) string {
	links := Links(text)
	if len(links) == 0 {
		return ""
	}
	return links[0]
}

// IsJSONURL reports whether link is an http(s) URL whose path ends in
// .json (case-insensitive) or which follows an API path convention.
func IsJSONURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return false
	}
	return HasJSONExtension(u.Path) || IsAPIURL(u)
}

// HasJSONExtension reports whether p ends in .json, ignoring case.
func HasJSONExtension(p string) bool {
	return strings.EqualFold(path.Ext(p), ".json")
}

// IsAPIURL reports whether u points at an API endpoint: an "api." host
// or an "/api/" path segment.
func IsAPIURL(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, "api.") {
		return true
	}
	return strings.Contains(strings.ToLower(u.Path)+"/", "/api/")
}

// hrefHasJSONExtension is HasJSONExtension applied to an href, ignoring any
// query string or fragment.
func hrefHasJSONExtension(href string) bool {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return HasJSONExtension(href)
}

// resolveHref resolves href against base. Absolute hrefs are returned as is.
func resolveHref(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func trimLink(link string) string {
	for link != "" && strings.ContainsRune(trailingPunct, rune(link[len(link)-1])) {
		link = link[:len(link)-1]
	}
	if i := strings.Index(link, "://"); i < 0 || len(link) == i+3 {
		return ""
	}
	return link
}
