// Package notify publishes completion events for downstream consumers.
package notify

import "context"

// DomainProcessed is the event emitted after a domain finishes, whether it
// succeeded or exhausted its retries.
type DomainProcessed struct {
	Domain       string `json:"domain"`
	URL          string `json:"url"`
	ScrapeType   string `json:"scrape_type"`
	ProductCount int    `json:"product_count"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// Provider publishes events to a messaging backend.
type Provider interface {
	// Publish sends the event and returns the backend's message ID.
	Publish(ctx context.Context, event DomainProcessed) (string, error)

	// Close releases underlying resources.
	Close() error
}

// NoOpProvider swallows every event. Used when no topic is configured.
type NoOpProvider struct{}

// Publish does nothing and returns a dummy ID.
func (NoOpProvider) Publish(_ context.Context, _ DomainProcessed) (string, error) {
	return "noop-message-id", nil
}

// Close does nothing.
func (NoOpProvider) Close() error { return nil }
