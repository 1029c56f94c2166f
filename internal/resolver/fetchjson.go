package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shineum/email-json/internal/email"
	"github.com/shineum/email-json/internal/fetch"
)

var errNoJSONInPage = errors.New("no JSON content in HTML page")

// fetchJSON retrieves rawURL as JSON. An HTML response is scraped for a
// preformatted JSON block; any other textual body is parsed directly.
// Failures are returned, never retried against another URL.
func fetchJSON(ctx context.Context, f fetch.Fetcher, rawURL string) (any, error) {
	res, err := f.Get(ctx, rawURL, http.Header{"Accept": {email.JSONMediaType}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JSON: %w", err)
	}

	if !res.IsText() {
		v, err := parseJSON(res.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
		}
		return v, nil
	}

	text := res.Text()
	if isHTMLResource(res, text) {
		doc, err := parsePage(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
		}
		if v, ok := preformattedJSON(doc); ok {
			return v, nil
		}
		// A JSON body mislabelled as HTML still parses below.
		if looksLikeHTML(text) {
			return nil, fmt.Errorf("%s: %w", rawURL, errNoJSONInPage)
		}
	}

	v, err := parseJSON(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", rawURL, err)
	}
	return v, nil
}

// fetchPage retrieves rawURL with default headers, for scraping.
func fetchPage(ctx context.Context, f fetch.Fetcher, rawURL string) (*fetch.Resource, error) {
	res, err := f.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return res, nil
}
