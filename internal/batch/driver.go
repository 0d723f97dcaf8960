// Package batch drives a scraping run over a URL list: fetch, extract,
// persist, and record each domain, with retries and resumable state.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/clock/system"
	"github.com/jbours/siteharvest/internal/extract"
	"github.com/jbours/siteharvest/internal/fetch"
	"github.com/jbours/siteharvest/internal/ledger"
	"github.com/jbours/siteharvest/internal/metrics"
	"github.com/jbours/siteharvest/internal/notify"
	"github.com/jbours/siteharvest/internal/progress"
	"github.com/jbours/siteharvest/internal/ratelimit"
	"github.com/jbours/siteharvest/internal/sink"
)

// Scrape types accepted by a run.
const (
	TypeProduct = "product"
	TypeCompany = "company"
	TypeAuto    = "auto"
)

// Options holds the knobs of a batch run.
type Options struct {
	// File is the path of the URL list.
	File string
	// OutputDir receives result and summary files.
	OutputDir string
	// StatusDir receives per-domain retry state. Defaults to OutputDir.
	StatusDir string
	// ScrapeType is product, company, or auto.
	ScrapeType string
	// Limit caps how many URLs are processed; zero means all.
	Limit int
	// Delay is the pause between consecutive URLs.
	Delay time.Duration
	// Retries is how many extra attempts a URL gets after the first one fails.
	Retries int
	// RetryDelay is the base backoff between attempts.
	RetryDelay time.Duration
	// SkipProcessed consults the ledger before each URL.
	SkipProcessed bool
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Deps bundles the driver's collaborators.
type Deps struct {
	Fetcher   fetch.Fetcher
	Extractor extract.Extractor
	Ledger    ledger.Ledger
	Sink      sink.Provider
	Notifier  notify.Provider
	Limiter   *ratelimit.Limiter
	Clock     Clock
	Logger    *zap.Logger
}

// Driver executes a batch run.
type Driver struct {
	opts      Options
	runID     uuid.UUID
	urls      []string
	fetcher   fetch.Fetcher
	extractor extract.Extractor
	ledger    ledger.Ledger
	sink      sink.Provider
	notifier  notify.Provider
	limiter   *ratelimit.Limiter
	tracker   *progress.Tracker
	clock     Clock
	logger    *zap.Logger
}

// New reads the URL list and assembles a Driver. Optional collaborators
// default to no-ops.
func New(runID uuid.UUID, opts Options, deps Deps) (*Driver, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("batch: fetcher is required")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("batch: extractor is required")
	}
	switch opts.ScrapeType {
	case TypeProduct, TypeCompany, TypeAuto:
	default:
		return nil, fmt.Errorf("batch: unknown scrape type %q", opts.ScrapeType)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.StatusDir == "" {
		opts.StatusDir = opts.OutputDir
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NoOpLedger{}
	}
	if deps.Sink == nil {
		deps.Sink = &sink.NoOpProvider{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoOpProvider{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}

	urls, err := ReadURLs(opts.File)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(urls) > opts.Limit {
		urls = urls[:opts.Limit]
	}

	return &Driver{
		opts:      opts,
		runID:     runID,
		urls:      urls,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		ledger:    deps.Ledger,
		sink:      deps.Sink,
		notifier:  deps.Notifier,
		limiter:   deps.Limiter,
		tracker:   progress.NewTracker(runID, len(urls), deps.Logger),
		clock:     deps.Clock,
		logger:    deps.Logger,
	}, nil
}

// Tracker exposes run progress for the status API.
func (d *Driver) Tracker() *progress.Tracker {
	return d.tracker
}

// Run processes every URL and writes the summary. The returned error covers
// run-level problems only; per-URL failures are reported in the Summary.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	start := d.clock.Now()
	d.logger.Info("Starting batch run",
		zap.String("run_id", d.runID.String()),
		zap.Int("urls", len(d.urls)),
		zap.String("type", d.opts.ScrapeType),
	)

	var failures []Failure
	for i, rawURL := range d.urls {
		if ctx.Err() != nil {
			d.logger.Warn("Batch run canceled", zap.Int("remaining", len(d.urls)-i))
			break
		}
		if i > 0 && d.opts.Delay > 0 {
			if err := sleepCtx(ctx, d.opts.Delay); err != nil {
				break
			}
		}
		if fail := d.processOne(ctx, rawURL); fail != nil {
			failures = append(failures, *fail)
		}
	}

	finished := d.clock.Now()
	snap := d.tracker.Snapshot()
	summary := Summary{
		RunID:      d.runID.String(),
		StartedAt:  start,
		FinishedAt: finished,
		Duration:   formatDuration(finished.Sub(start)),
		Seconds:    finished.Sub(start).Seconds(),
		Total:      snap.Total,
		Succeeded:  snap.Succeeded,
		Failed:     snap.Failed,
		Skipped:    snap.Skipped,
		Products:   snap.Products,
		Failures:   failures,
	}
	path, err := summary.Write(d.opts.OutputDir)
	if err != nil {
		return summary, err
	}
	d.logger.Info("Batch run finished",
		zap.String("summary", path),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("duration", summary.Duration),
	)
	return summary, nil
}

// processOne runs the full pipeline for one URL, including its retry budget.
// It returns a Failure when the URL ends up unprocessed.
func (d *Driver) processOne(ctx context.Context, rawURL string) *Failure {
	rawURL = normalizeURL(rawURL)
	domain := ledger.Domain(rawURL)
	if domain == "" {
		d.tracker.Emit(progress.Event{Stage: progress.StageURLError, URL: rawURL, Note: "invalid url"})
		return &Failure{URL: rawURL, Error: "invalid url"}
	}

	if d.opts.SkipProcessed {
		done, err := d.ledger.Contains(ctx, domain)
		if err != nil {
			d.logger.Warn("Ledger lookup failed", zap.String("domain", domain), zap.Error(err))
		}
		if !done {
			// A result file on disk also counts as processed; it covers
			// runs whose ledger was lost or never configured.
			if _, serr := os.Stat(filepath.Join(d.opts.OutputDir, sink.ResultObjectName(domain))); serr == nil {
				done = true
			}
		}
		if done {
			metrics.ObserveLedgerSkip()
			d.tracker.Emit(progress.Event{Stage: progress.StageURLSkip, Domain: domain, URL: rawURL, Note: "already processed"})
			return nil
		}
	}

	rec, err := LoadStatus(d.opts.StatusDir, domain)
	if err != nil {
		d.logger.Warn("Status file unreadable, starting fresh", zap.String("domain", domain), zap.Error(err))
		rec = StatusRecord{}
	}
	// The budget is one initial attempt plus Retries additional ones.
	remaining := d.opts.Retries + 1 - rec.Attempts
	if remaining <= 0 {
		err := fmt.Errorf("retries exhausted in an earlier run after %d attempts", rec.Attempts)
		d.recordExhausted(ctx, domain, rawURL, err)
		return &Failure{URL: rawURL, Error: err.Error()}
	}
	rec.URL = rawURL

	d.tracker.Emit(progress.Event{Stage: progress.StageURLStart, Domain: domain, URL: rawURL, Attempt: rec.Attempts + 1})

	var productCount int
	err = retry.Do(
		func() error {
			rec.Attempts++
			rec.LastAttempt = d.clock.Now()
			count, perr := d.scrape(ctx, rawURL, domain, rec.Attempts)
			if perr != nil {
				rec.Errors = append(rec.Errors, perr.Error())
				if serr := SaveStatus(d.opts.StatusDir, domain, rec); serr != nil {
					d.logger.Warn("Failed to save status file", zap.String("domain", domain), zap.Error(serr))
				}
				return perr
			}
			productCount = count
			return nil
		},
		retry.Attempts(uint(remaining)),
		retry.Delay(d.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			metrics.ObserveRetry()
			d.tracker.Emit(progress.Event{
				Stage:   progress.StageRetry,
				Domain:  domain,
				URL:     rawURL,
				Attempt: int(n) + 2,
				Note:    err.Error(),
			})
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			// Canceled mid-run; leave the status file so the next run resumes.
			d.tracker.Emit(progress.Event{Stage: progress.StageURLError, Domain: domain, URL: rawURL, Note: err.Error()})
			return &Failure{URL: rawURL, Error: err.Error()}
		}
		d.recordExhausted(ctx, domain, rawURL, err)
		return &Failure{URL: rawURL, Error: err.Error()}
	}

	if err := ClearStatus(d.opts.StatusDir, domain); err != nil {
		d.logger.Warn("Failed to clear status file", zap.String("domain", domain), zap.Error(err))
	}
	if err := d.ledger.Record(ctx, domain, productCount); err != nil {
		d.logger.Error("Failed to record domain in ledger", zap.String("domain", domain), zap.Error(err))
	}
	d.publish(ctx, notify.DomainProcessed{
		Domain:       domain,
		URL:          rawURL,
		ScrapeType:   d.opts.ScrapeType,
		ProductCount: productCount,
		Success:      true,
	})
	metrics.ObserveDomainProcessed("success", productCount)
	d.tracker.Emit(progress.Event{Stage: progress.StageURLDone, Domain: domain, URL: rawURL, Products: productCount})
	return nil
}

// recordExhausted finalizes a domain that burned its whole attempt budget. A
// zero-count ledger entry keeps later runs from retrying it forever.
func (d *Driver) recordExhausted(ctx context.Context, domain, rawURL string, cause error) {
	if err := d.ledger.Record(ctx, domain, 0); err != nil {
		d.logger.Error("Failed to record exhausted domain in ledger", zap.String("domain", domain), zap.Error(err))
	}
	d.publish(ctx, notify.DomainProcessed{
		Domain:     domain,
		URL:        rawURL,
		ScrapeType: d.opts.ScrapeType,
		Success:    false,
		Error:      cause.Error(),
	})
	metrics.ObserveDomainProcessed("error", 0)
	d.tracker.Emit(progress.Event{Stage: progress.StageURLError, Domain: domain, URL: rawURL, Note: cause.Error()})
}

// scrape performs one attempt: fetch the site, extract, and save the result.
func (d *Driver) scrape(ctx context.Context, rawURL, domain string, attempt int) (int, error) {
	html, err := d.fetchHTML(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	kind := d.opts.ScrapeType
	if kind == TypeAuto {
		start := d.clock.Now()
		kind, err = d.extractor.Classify(ctx, rawURL, html)
		metrics.ObserveExtraction("classify", outcome(err), d.clock.Now().Sub(start))
		if err != nil {
			return 0, fmt.Errorf("classify site: %w", err)
		}
		d.logger.Info("Classified site", zap.String("domain", domain), zap.String("kind", kind))
	}

	result := extract.Result{
		Metadata: extract.Metadata{
			URL:        rawURL,
			Timestamp:  d.clock.Now(),
			ScrapeType: kind,
			Attempts:   attempt,
		},
	}

	switch kind {
	case TypeProduct:
		if err := d.scrapeProducts(ctx, rawURL, html, &result); err != nil {
			return 0, err
		}
	case TypeCompany:
		start := d.clock.Now()
		company, err := d.extractor.ExtractCompany(ctx, rawURL, html)
		metrics.ObserveExtraction("company", outcome(err), d.clock.Now().Sub(start))
		if err != nil {
			return 0, fmt.Errorf("extract company: %w", err)
		}
		result.Company = &company
	default:
		return 0, fmt.Errorf("unknown scrape type %q", kind)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	if err := d.sink.Save(ctx, sink.ResultObjectName(domain), data); err != nil {
		return 0, fmt.Errorf("save result: %w", err)
	}
	return result.ProductCount(), nil
}

// scrapeProducts discovers product pages and extracts each one. Individual
// product pages that fail are logged and skipped rather than failing the
// whole domain.
func (d *Driver) scrapeProducts(ctx context.Context, rawURL, html string, result *extract.Result) error {
	start := d.clock.Now()
	discovery, err := d.extractor.DiscoverProductURLs(ctx, rawURL, html)
	metrics.ObserveExtraction("discover", outcome(err), d.clock.Now().Sub(start))
	if err != nil {
		return fmt.Errorf("discover product urls: %w", err)
	}
	result.ProductURLs = discovery.ProductURLs

	for _, productURL := range discovery.ProductURLs {
		if ctx.Err() != nil {
			return fmt.Errorf("product extraction interrupted: %w", ctx.Err())
		}
		productHTML, err := d.fetchHTML(ctx, productURL)
		if err != nil {
			d.logger.Warn("Skipping product page", zap.String("url", productURL), zap.Error(err))
			continue
		}
		start := d.clock.Now()
		product, err := d.extractor.ExtractProduct(ctx, productURL, productHTML)
		metrics.ObserveExtraction("product", outcome(err), d.clock.Now().Sub(start))
		if err != nil {
			d.logger.Warn("Skipping product page", zap.String("url", productURL), zap.Error(err))
			continue
		}
		result.Products = append(result.Products, product)
	}
	return nil
}

func (d *Driver) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, rawURL); err != nil {
			return "", err
		}
	}
	page, err := d.fetcher.Fetch(ctx, rawURL)
	mode := "plain"
	if page.Rendered {
		mode = "rendered"
	}
	if page.FromCache {
		metrics.ObserveCacheHit()
	}
	metrics.ObserveFetch(rawURL, outcome(err), mode, page.Duration)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if len(page.Body) == 0 {
		return "", fmt.Errorf("fetch %s: %w", rawURL, fetch.ErrEmptyBody)
	}
	return string(page.Body), nil
}

func (d *Driver) publish(ctx context.Context, event notify.DomainProcessed) {
	if _, err := d.notifier.Publish(ctx, event); err != nil {
		d.logger.Warn("Failed to publish event", zap.String("domain", event.Domain), zap.Error(err))
	}
}

// normalizeURL fills in a https scheme for bare hostnames from the URL list.
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" && !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	return rawURL
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}
