// Package ledger tracks which domains have already been scraped so batch
// runs can skip them and resume after interruption.
package ledger

import (
	"context"
	"net/url"
	"strings"
)

// Ledger records processed domains and answers membership queries.
type Ledger interface {
	// Contains reports whether the domain was already processed.
	Contains(ctx context.Context, domain string) (bool, error)

	// Record marks the domain processed with the number of products found.
	Record(ctx context.Context, domain string, productCount int) error

	// Close flushes and releases underlying resources.
	Close() error
}

// Domain normalizes a raw URL to the ledger's domain form: the lowercased
// host with any leading www. stripped. Bare hostnames are accepted too.
func Domain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		// Fall back to treating the input as a bare host.
		host := strings.ToLower(strings.TrimSpace(rawURL))
		host = strings.TrimPrefix(host, "www.")
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		return host
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// NoOpLedger never skips anything and records nowhere. Useful when running
// without persistence.
type NoOpLedger struct{}

// Contains always reports false.
func (NoOpLedger) Contains(_ context.Context, _ string) (bool, error) { return false, nil }

// Record does nothing.
func (NoOpLedger) Record(_ context.Context, _ string, _ int) error { return nil }

// Close does nothing.
func (NoOpLedger) Close() error { return nil }
