package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if fetchesTotal == nil || extractionsTotal == nil || domainsProcessedTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveCacheHit()
	if val := testutil.ToFloat64(cacheHitsTotal); val < 1 {
		t.Errorf("Expected cacheHitsTotal >= 1, got %f", val)
	}

	ObserveFetch("https://test.com/page", "success", "plain", 100*time.Millisecond)
	if val := testutil.ToFloat64(fetchesTotal.WithLabelValues("test.com", "success")); val != 1 {
		t.Errorf("Expected fetchesTotal{test.com,success} to be 1, got %f", val)
	}
}

func TestObserversDoNotPanic(t *testing.T) {
	ObserveLedgerSkip()
	ObserveRetry()
	ObserveRateLimitDelay(time.Second)
	ObserveDomainProcessed("success", 3)
	ObserveExtraction("product", "success", time.Second)
}
