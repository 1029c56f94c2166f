// Package fetch provides the HTTP capability the resolver uses to retrieve
// linked pages and JSON documents.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxRedirects = 10
	defaultMaxBodySize  = 10 << 20
	defaultUserAgent    = "email-json/1.0 (+https://github.com/shineum/email-json)"
)

// ErrUnsupportedScheme is returned for URLs that are not http or https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// ErrBodyTooLarge is returned when a response exceeds the body size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Fetcher retrieves a URL. Implementations own timeouts, redirects and
// connection reuse; callers treat any error as a failed fetch.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, headers http.Header) (*Resource, error)
}

// Resource is a fetched HTTP response body.
type Resource struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// MediaType returns the lower-cased content type without parameters.
func (r *Resource) MediaType() string {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return ""
	}
	return mediaType
}

// IsText reports whether the body should be handled as text. An absent or
// generic content type falls back to a UTF-8 validity check.
func (r *Resource) IsText() bool {
	mediaType := r.MediaType()
	switch {
	case strings.HasPrefix(mediaType, "text/"),
		strings.HasSuffix(mediaType, "/json"),
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "/xml"),
		strings.HasSuffix(mediaType, "+xml"),
		strings.HasSuffix(mediaType, "/javascript"):
		return true
	case mediaType == "", mediaType == "application/octet-stream":
		return utf8.Valid(r.Body)
	default:
		return false
	}
}

// Text returns the body as a string.
func (r *Resource) Text() string {
	return string(r.Body)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %s", e.URL, e.Status)
}

// Config holds the settings for a Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodySize  int64
	UserAgent    string
}

// Client is the default Fetcher backed by net/http.
type Client struct {
	httpClient  *http.Client
	maxBodySize int64
	userAgent   string
	logger      *slog.Logger
	signer      RequestSigner
}

// RequestSigner authenticates an outgoing request in place. Signers decide
// per request whether to sign.
type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request) error
}

// New creates a Client. Zero values in cfg are replaced with defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return NewWithHTTPClient(client, cfg.MaxBodySize, cfg.UserAgent)
}

// NewWithHTTPClient creates a Client around an existing http.Client,
// used for testing.
func NewWithHTTPClient(client *http.Client, maxBodySize int64, userAgent string) *Client {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		httpClient:  client,
		maxBodySize: maxBodySize,
		userAgent:   userAgent,
		logger:      slog.Default(),
	}
}

// WithLogger returns the client with the given logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithSigner returns the client with requests passed through signer before
// they are sent.
func (c *Client) WithSigner(signer RequestSigner) *Client {
	c.signer = signer
	return c
}

// Get issues a GET request for rawURL with the given extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) (*Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.signer != nil {
		if err := c.signer.Sign(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to sign request for %s: %w", u.Redacted(), err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u.Redacted(), err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, u.Redacted(), c.maxBodySize)
	}

	c.logger.Debug("fetched url",
		"url", u.Redacted(),
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode, Status: resp.Status}
	}

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Resource{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
