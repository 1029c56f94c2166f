// Package resolver finds the JSON payload an email carries or points to.
//
// A Resolver runs an ordered chain of strategies over a decoded email and
// stops at the first one that yields a JSON value. Strategy failures are
// misses, not errors: the chain moves on. Only an unreadable or undecodable
// source file is fatal.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shineum/email-json/internal/email"
	"github.com/shineum/email-json/internal/fetch"
	"github.com/shineum/email-json/internal/parser"
	"github.com/shineum/email-json/internal/source"
)

// Resolution outcomes as reported to the Observer.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Result is the outcome of a resolution. The zero value means not found.
type Result struct {
	// Value is the decoded JSON value, shaped as encoding/json decodes into
	// an empty interface.
	Value any

	// Strategy names the strategy that produced Value.
	Strategy string

	// Source is the attachment filename or URL Value came from, or "text"
	// for JSON embedded in the body.
	Source string

	found bool
}

// Found reports whether a JSON value was located.
func (r Result) Found() bool {
	return r.found
}

// FatalInputError reports that the source email could not be read or
// decoded. No strategy runs when it is returned.
type FatalInputError struct {
	Path string
	Err  error
}

func (e *FatalInputError) Error() string {
	return fmt.Sprintf("cannot load email %s: %v", e.Path, e.Err)
}

func (e *FatalInputError) Unwrap() error {
	return e.Err
}

// Observer receives resolution events. *metrics.Collector implements it.
type Observer interface {
	ObserveResolution(outcome string)
	ObserveAttempt(strategy string, hit bool)
	ObserveFetch(kind string, d time.Duration, err error)
}

// Config holds the collaborators of a Resolver. Only Fetcher is required
// for Resolve; ResolveFile also needs Reader.
type Config struct {
	Reader  source.Reader
	Fetcher fetch.Fetcher

	// Decode turns raw message bytes into an Email. Defaults to parser.Parse.
	Decode func(raw []byte) (*email.Email, error)

	// Strategies replaces the default chain when non-empty.
	Strategies []Strategy

	// LenientJSON enables repair of near-JSON embedded in the text body.
	// Ignored when Strategies is set.
	LenientJSON bool

	Logger   *slog.Logger
	Observer Observer
}

// Resolver runs the strategy chain. It holds no per-call state and is safe
// for concurrent use.
type Resolver struct {
	reader     source.Reader
	fetcher    fetch.Fetcher
	decode     func(raw []byte) (*email.Email, error)
	strategies []Strategy
	logger     *slog.Logger
	observer   Observer
}

// New creates a Resolver from cfg.
func New(cfg Config) *Resolver {
	r := &Resolver{
		reader:     cfg.Reader,
		fetcher:    cfg.Fetcher,
		decode:     cfg.Decode,
		strategies: cfg.Strategies,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
	}
	if r.decode == nil {
		r.decode = parser.Parse
	}
	if len(r.strategies) == 0 {
		r.strategies = DefaultStrategies(cfg.LenientJSON)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.fetcher == nil {
		r.fetcher = noFetcher{}
	}
	r.fetcher = observedFetcher{next: r.fetcher, observer: r.observer}
	return r
}

// Strategies returns the names of the configured chain, in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// ResolveFile reads and decodes the email at path, then resolves it.
// Read and decode failures are returned as *FatalInputError.
func (r *Resolver) ResolveFile(ctx context.Context, path string) (Result, error) {
	if r.reader == nil {
		r.observer.ObserveResolution(OutcomeError)
		return Result{}, &FatalInputError{Path: path, Err: errors.New("no file reader configured")}
	}

	raw, err := r.reader.ReadFile(ctx, path)
	if err != nil {
		r.logger.Error("failed to read email", "path", path, "error", err)
		r.observer.ObserveResolution(OutcomeError)
		return Result{}, &FatalInputError{Path: path, Err: err}
	}

	msg, err := r.decode(raw)
	if err != nil {
		r.logger.Error("failed to decode email", "path", path, "error", err)
		r.observer.ObserveResolution(OutcomeError)
		return Result{}, &FatalInputError{Path: path, Err: err}
	}

	r.logger.Debug("email decoded",
		"path", path,
		"message_id", msg.MessageID,
		"attachments", len(msg.Attachments),
		"text_bytes", len(msg.TextBody),
	)

	return r.Resolve(ctx, msg)
}

// Resolve runs the strategy chain over msg in order and returns the first
// hit. A nil error with a not-found Result means every strategy missed.
// The only error is ctx's, when it ends before the chain completes.
func (r *Resolver) Resolve(ctx context.Context, msg *email.Email) (Result, error) {
	if msg == nil {
		msg = &email.Email{}
	}

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			r.observer.ObserveResolution(OutcomeError)
			return Result{}, err
		}

		hit, err := s.Attempt(ctx, msg, r.fetcher)
		switch {
		case err != nil:
			r.logger.Warn("strategy missed", "strategy", s.Name(), "error", err)
		case hit == nil:
			r.logger.Debug("strategy not applicable", "strategy", s.Name())
		case hit.Value == nil:
			// JSON null carries no payload
			r.logger.Warn("strategy produced null", "strategy", s.Name(), "source", hit.Source)
		default:
			r.observer.ObserveAttempt(s.Name(), true)
			r.observer.ObserveResolution(OutcomeFound)
			r.logger.Info("json found", "strategy", s.Name(), "source", hit.Source)
			return Result{Value: hit.Value, Strategy: s.Name(), Source: hit.Source, found: true}, nil
		}
		r.observer.ObserveAttempt(s.Name(), false)
	}

	if err := ctx.Err(); err != nil {
		r.observer.ObserveResolution(OutcomeError)
		return Result{}, err
	}

	r.observer.ObserveResolution(OutcomeNotFound)
	r.logger.Info("no JSON found in email", "message_id", msg.MessageID)
	return Result{}, nil
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string)                  {}
func (nopObserver) ObserveAttempt(string, bool)               {}
func (nopObserver) ObserveFetch(string, time.Duration, error) {}

// noFetcher fails every request; it stands in when no Fetcher is configured.
type noFetcher struct{}

func (noFetcher) Get(context.Context, string, http.Header) (*fetch.Resource, error) {
	return nil, errors.New("no fetcher configured")
}

// observedFetcher reports fetch latency to an Observer. Requests asking for
// JSON are labelled "json", all others "page".
type observedFetcher struct {
	next     fetch.Fetcher
	observer Observer
}

func (o observedFetcher) Get(ctx context.Context, rawURL string, headers http.Header) (*fetch.Resource, error) {
	kind := "page"
	if headers.Get("Accept") == email.JSONMediaType {
		kind = "json"
	}
	start := time.Now()
	res, err := o.next.Get(ctx, rawURL, headers)
	o.observer.ObserveFetch(kind, time.Since(start), err)
	return res, err
}
