package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shineum/email-json/internal/email"
	"github.com/shineum/email-json/internal/fetch"
)

// Strategy is one step of the resolution chain. Attempt returns a nil Hit
// and a nil error when the strategy does not apply to msg; an error means
// the strategy applied but failed. Both are misses to the Resolver.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, msg *email.Email, f fetch.Fetcher) (*Hit, error)
}

// Hit is the JSON value a strategy produced and where it came from.
type Hit struct {
	Value  any
	Source string
}

// Strategy names as reported in results, logs and metrics.
const (
	StrategyAttachment = "attachment"
	StrategyEmbedded   = "embedded-text"
	StrategyJSONLink   = "json-link"
	StrategyWebpage    = "webpage-link"
)

// DefaultStrategies returns the standard chain: attachments, embedded text,
// direct JSON links, then linked webpages.
func DefaultStrategies(lenientJSON bool) []Strategy {
	return []Strategy{
		AttachmentStrategy{},
		EmbeddedTextStrategy{Lenient: lenientJSON},
		JSONLinkStrategy{},
		WebpageStrategy{},
	}
}

// AttachmentStrategy parses the first attachment declared as JSON.
type AttachmentStrategy struct{}

func (AttachmentStrategy) Name() string { return StrategyAttachment }

func (AttachmentStrategy) Attempt(_ context.Context, msg *email.Email, _ fetch.Fetcher) (*Hit, error) {
	for _, att := range msg.Attachments {
		if !att.IsJSON() {
			continue
		}
		if !utf8.Valid(att.Content) {
			return nil, fmt.Errorf("attachment %q is not valid UTF-8", att.Filename)
		}
		v, err := parseJSON(att.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", att.Filename, err)
		}
		return &Hit{Value: v, Source: att.Filename}, nil
	}
	return nil, nil
}

// EmbeddedTextStrategy parses JSON written directly into the text body:
// first a brace-delimited object, then the whole body.
type EmbeddedTextStrategy struct {
	// Lenient repairs near-JSON objects (trailing commas, single quotes)
	// before giving up on the brace-delimited candidates.
	Lenient bool
}

func (EmbeddedTextStrategy) Name() string { return StrategyEmbedded }

func (s EmbeddedTextStrategy) Attempt(_ context.Context, msg *email.Email, _ fetch.Fetcher) (*Hit, error) {
	text := msg.TextBody
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	candidates := EmbeddedCandidates(text)
	for _, c := range candidates {
		if v, err := parseJSON([]byte(c)); err == nil {
			return &Hit{Value: v, Source: "text"}, nil
		}
	}

	v, err := parseJSON([]byte(text))
	if err == nil {
		return &Hit{Value: v, Source: "text"}, nil
	}

	if s.Lenient {
		for _, c := range candidates {
			if obj, repairErr := repairObject(c); repairErr == nil {
				return &Hit{Value: obj, Source: "text"}, nil
			}
		}
	}

	if len(candidates) == 0 {
		// No braces: plain prose.
		return nil, nil
	}
	return nil, fmt.Errorf("embedded text is not valid JSON: %w", err)
}

// JSONLinkStrategy fetches the first link in the text body that looks like
// a JSON resource.
type JSONLinkStrategy struct{}

func (JSONLinkStrategy) Name() string { return StrategyJSONLink }

func (JSONLinkStrategy) Attempt(ctx context.Context, msg *email.Email, f fetch.Fetcher) (*Hit, error) {
	link := FindJSONLink(msg.TextBody)
	if link == "" {
		return nil, nil
	}
	v, err := fetchJSON(ctx, f, link)
	if err != nil {
		return nil, err
	}
	return &Hit{Value: v, Source: link}, nil
}

// WebpageStrategy fetches the first link in the text body as a webpage and
// looks inside it for the JSON payload or a link to it.
type WebpageStrategy struct{}

func (WebpageStrategy) Name() string { return StrategyWebpage }

func (WebpageStrategy) Attempt(ctx context.Context, msg *email.Email, f fetch.Fetcher) (*Hit, error) {
	link := FindWebpageLink(msg.TextBody)
	if link == "" {
		return nil, nil
	}

	target, err := jsonSourceInPage(ctx, f, link)
	if err != nil {
		return nil, err
	}

	v, err := fetchJSON(ctx, f, target)
	if err != nil {
		return nil, err
	}
	return &Hit{Value: v, Source: target}, nil
}

var errNoJSONSource = errors.New("no JSON source found in webpage")

// jsonSourceInPage fetches pageURL and returns the URL to fetch JSON from,
// checking in order: inline preformatted JSON (the page itself), a .json
// link, an "api" link, and a GitHub raw-content link.
func jsonSourceInPage(ctx context.Context, f fetch.Fetcher, pageURL string) (string, error) {
	res, err := fetchPage(ctx, f, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := parsePage(res.Text())
	if err != nil {
		return "", fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	// fetchJSON scrapes the page under the same condition, so the refetch
	// yields this block.
	if isHTMLResource(res, res.Text()) {
		if _, ok := preformattedJSON(doc); ok {
			return pageURL, nil
		}
	}

	base := res.URL
	if base == "" {
		base = pageURL
	}

	if href := firstHref(doc, hrefHasJSONExtension); href != "" {
		return resolveHref(base, href)
	}

	if href := firstHref(doc, func(h string) bool { return strings.Contains(h, "api") }); href != "" {
		return resolveHref(base, href)
	}

	if raw := githubRawURL(doc, base); raw != "" {
		return raw, nil
	}

	return "", fmt.Errorf("%s: %w", pageURL, errNoJSONSource)
}
