// Package metrics exposes Prometheus collectors for the scraping pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal              *prometheus.CounterVec
	cacheHitsTotal            prometheus.Counter
	extractionsTotal          *prometheus.CounterVec
	domainsProcessedTotal     *prometheus.CounterVec
	ledgerSkipsTotal          prometheus.Counter
	retriesTotal              prometheus.Counter
	productsExtractedTotal    prometheus.Counter
	rateLimitDelaysSeconds    prometheus.Histogram
	fetchDurationSeconds      *prometheus.HistogramVec
	extractionDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetches_total",
				Help: "Total number of page fetches, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		cacheHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_cache_hits_total",
				Help: "Total number of fetches served from the HTML cache.",
			},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_extractions_total",
				Help: "Total number of LLM extraction calls, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		domainsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_domains_processed_total",
				Help: "Total number of domains finished, labeled by status.",
			},
			[]string{"status"},
		)

		ledgerSkipsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_ledger_skips_total",
				Help: "Total number of URLs skipped because their domain was already processed.",
			},
		)

		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_retries_total",
				Help: "Total number of retry attempts across all URLs.",
			},
		)

		productsExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_products_extracted_total",
				Help: "Total number of product records extracted.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by mode.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		)

		extractionDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_extraction_duration_seconds",
				Help:    "Histogram of LLM extraction call latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(site, outcome, mode string, duration time.Duration) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveCacheHit records a fetch served from cache.
func ObserveCacheHit() {
	if cacheHitsTotal == nil {
		return
	}
	cacheHitsTotal.Inc()
}

// ObserveExtraction records one LLM extraction call.
func ObserveExtraction(kind, outcome string, duration time.Duration) {
	if extractionsTotal == nil {
		return
	}
	extractionsTotal.WithLabelValues(kind, outcome).Inc()
	extractionDurationSeconds.Observe(duration.Seconds())
}

// ObserveDomainProcessed records a finished domain.
func ObserveDomainProcessed(status string, productCount int) {
	if domainsProcessedTotal == nil {
		return
	}
	domainsProcessedTotal.WithLabelValues(status).Inc()
	if productCount > 0 {
		productsExtractedTotal.Add(float64(productCount))
	}
}

// ObserveLedgerSkip records a URL skipped via the processed ledger.
func ObserveLedgerSkip() {
	if ledgerSkipsTotal == nil {
		return
	}
	ledgerSkipsTotal.Inc()
}

// ObserveRetry records one retry attempt.
func ObserveRetry() {
	if retriesTotal == nil {
		return
	}
	retriesTotal.Inc()
}

// ObserveRateLimitDelay records time spent waiting on the rate limiter.
func ObserveRateLimitDelay(delay time.Duration) {
	if rateLimitDelaysSeconds == nil {
		return
	}
	rateLimitDelaysSeconds.Observe(delay.Seconds())
}
