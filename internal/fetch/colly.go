package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// LocalConfig configures the local fetch providers.
type LocalConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	// Renderer knobs, used when the chromedp path is enabled.
	RenderTimeout     time.Duration
	RenderConcurrency int
	RenderDomainQPS   float64
}

// CollyFetcher fetches pages over plain HTTP using a Colly collector. It is
// the fallback provider for runs without a managed API key.
type CollyFetcher struct {
	baseCollector *colly.Collector
	robots        RobotsPolicy
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg LocalConfig, robots RobotsPolicy, logger *zap.Logger) (*CollyFetcher, error) {
	if cfg.UserAgent == "" {
		return nil, errors.New("local fetch: user agent is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	base := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)
	if cfg.MaxBodyBytes > 0 {
		base.MaxBodySize = int(cfg.MaxBodyBytes)
	}

	return &CollyFetcher{
		baseCollector: base,
		robots:        robots,
		logger:        logger,
	}, nil
}

// Fetch retrieves a page via the configured Colly collector.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		return Page{}, ErrRobotsDisallowed
	}

	collector := f.baseCollector.Clone()
	resultCh := make(chan collyResult, 1)
	var once sync.Once
	send := func(res collyResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(collyResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
			FetchedAt:  time.Now().UTC(),
			Duration:   time.Since(start),
		}})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(collyResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if res.err != nil {
			return Page{}, res.err
		}
		return res.page, nil
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

type collyResult struct {
	page Page
	err  error
}
