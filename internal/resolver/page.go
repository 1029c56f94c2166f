package resolver

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shineum/email-json/internal/fetch"
)

// preformattedSelectors are the elements whose text may carry inline JSON,
// in priority order. GitHub renders file lines as .blob-code-inner cells
// or inside a read-only textarea.
var preformattedSelectors = []string{
	"pre, code",
	"textarea#read-only-cursor-text-area",
}

const (
	githubHost    = "github.com"
	githubRawHost = "raw.githubusercontent.com"
)

func parsePage(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// looksLikeHTML reports whether text starts with an HTML document marker.
func looksLikeHTML(text string) bool {
	head := strings.TrimLeft(strings.TrimPrefix(text, "\ufeff"), " \t\r\n")
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = strings.ToLower(head)
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") {
		return true
	}
	return strings.HasPrefix(head, "<!--") && strings.Contains(head, "<html")
}

// isHTMLResource reports whether res should be scraped as a page: it is
// served as HTML or its body starts with an HTML document marker.
func isHTMLResource(res *fetch.Resource, text string) bool {
	switch res.MediaType() {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return looksLikeHTML(text)
}

// preformattedJSON returns the first preformatted block in doc whose text
// parses as JSON.
func preformattedJSON(doc *goquery.Document) (any, bool) {
	var (
		found any
		ok    bool
	)
	for _, sel := range preformattedSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, err := parseJSON([]byte(s.Text())); err == nil && isContainer(v) {
				found, ok = v, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}

	var lines []string
	doc.Find(".blob-code-inner").Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, s.Text())
	})
	if len(lines) > 0 {
		if v, err := parseJSON([]byte(strings.Join(lines, "\n"))); err == nil && isContainer(v) {
			return v, true
		}
	}
	return nil, false
}

// isContainer reports whether v is a JSON object or array. Scalars inside
// <code> elements are too common in prose to count as payloads.
func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// firstHref returns the first anchor href in document order that satisfies
// match, or "".
func firstHref(doc *goquery.Document, match func(href string) bool) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href != "" && !strings.HasPrefix(href, "#") && match(href) {
			found = href
			return false
		}
		return true
	})
	return found
}

func isGitHubHost(host string) bool {
	host = strings.ToLower(host)
	return host == githubHost || host == "www."+githubHost
}

// githubRawURL returns the raw-content URL for a GitHub file page: the
// target of its "Raw" button when present, otherwise the blob path
// rewritten onto raw.githubusercontent.com. Returns "" for non-GitHub pages.
func githubRawURL(doc *goquery.Document, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || !isGitHubHost(u.Hostname()) {
		return ""
	}

	if href, ok := doc.Find(`a[data-testid="raw-button"]`).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		if raw, err := resolveHref("https://"+githubHost+"/", href); err == nil {
			return raw
		}
	}

	return rawFromBlobPath(u)
}

// rawFromBlobPath maps /<owner>/<repo>/blob/<ref>/<path> to its
// raw.githubusercontent.com equivalent.
func rawFromBlobPath(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 5 || parts[2] != "blob" {
		return ""
	}
	raw := url.URL{
		Scheme: "https",
		Host:   githubRawHost,
		Path:   "/" + strings.Join(append(parts[:2:2], parts[3:]...), "/"),
	}
	return raw.String()
}
