// Package fetch retrieves rendered page HTML, either through a managed
// scraping API or locally via plain HTTP and headless Chrome. A Redis-backed
// cache and a robots.txt policy wrap the providers.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Page is the result of fetching a single URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Rendered   bool
	FromCache  bool
	FetchedAt  time.Time
	Duration   time.Duration
}

// ContentLength returns the body size in bytes.
func (p Page) ContentLength() int { return len(p.Body) }

// Fetcher fetches a URL and returns the page plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// RobotsPolicy reports whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Detector decides whether a plain fetch needs to be promoted to a rendered one.
type Detector interface {
	NeedsJS(ctx context.Context, page Page) bool
}

// Errors shared across providers.
var (
	ErrRobotsDisallowed = errors.New("fetch blocked by robots.txt")
	ErrEmptyBody        = errors.New("fetch returned empty body")
	ErrRendererDisabled = errors.New("renderer disabled")
)
