// Package sink defines where extraction results end up. The abstraction
// keeps the batch driver independent of a specific backend (local
// filesystem, Google Cloud Storage, or nothing at all).
package sink

import (
	"context"
	"strings"
)

// Provider saves a named blob of result data.
type Provider interface {
	// Save writes data under the given object name.
	Save(ctx context.Context, objectName string, data []byte) error
}

// ResultObjectName maps a domain to its result file name, replacing dots
// with underscores so the name is safe across backends.
func ResultObjectName(domain string) string {
	return strings.ReplaceAll(domain, ".", "_") + ".json"
}

// NoOpProvider discards everything. Useful for dry runs where content is
// fetched and extracted but not saved.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
