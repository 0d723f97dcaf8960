// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/extract"
	"github.com/jbours/siteharvest/internal/fetch"
	"github.com/jbours/siteharvest/internal/ledger"
	"github.com/jbours/siteharvest/internal/logging"
	"github.com/jbours/siteharvest/internal/metrics"
	"github.com/jbours/siteharvest/internal/minimize"
	"github.com/jbours/siteharvest/internal/notify"
	"github.com/jbours/siteharvest/internal/ratelimit"
	"github.com/jbours/siteharvest/internal/sink"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	logger    *zap.Logger
	fetcher   fetch.Fetcher
	cache     *fetch.PageCache
	extractor extract.Extractor
	ledger    ledger.Ledger
	sink      sink.Provider
	notifier  notify.Provider
	limiter   *ratelimit.Limiter
	closers   []io.Closer
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetFetcher returns the configured page fetcher, cache included.
func (a *App) GetFetcher() fetch.Fetcher { return a.fetcher }

// GetCache returns the Redis page cache, or nil when caching is disabled.
func (a *App) GetCache() *fetch.PageCache { return a.cache }

// GetExtractor returns the LLM extraction agent.
func (a *App) GetExtractor() extract.Extractor { return a.extractor }

// GetLedger returns the processed-domain ledger.
func (a *App) GetLedger() ledger.Ledger { return a.ledger }

// GetSink returns the result sink provider.
func (a *App) GetSink() sink.Provider { return a.sink }

// GetNotifier returns the completion event publisher.
func (a *App) GetNotifier() notify.Provider { return a.notifier }

// GetLimiter returns the per-domain rate limiter.
func (a *App) GetLimiter() *ratelimit.Limiter { return a.limiter }

// NewApp creates and initializes a new App based on the application's
// configuration. It reads values from Viper and instantiates the appropriate
// providers, failing fast if any critical service cannot be initialized.
func NewApp(ctx context.Context) (*App, error) {
	l := logging.L
	l.Info("Initializing application services...")
	metrics.Init()

	a := &App{logger: l}

	if err := a.setupCache(ctx); err != nil {
		return nil, err
	}
	if err := a.setupFetcher(); err != nil {
		return nil, err
	}
	if err := a.setupExtractor(); err != nil {
		return nil, err
	}
	if err := a.setupLedger(ctx); err != nil {
		return nil, err
	}
	if err := a.setupSink(ctx); err != nil {
		return nil, err
	}
	if err := a.setupNotifier(ctx); err != nil {
		return nil, err
	}

	a.limiter = ratelimit.New(ratelimit.Config{
		DefaultRPS:   viper.GetFloat64("scraper.rps"),
		DefaultBurst: viper.GetInt("scraper.burst"),
	})

	l.Info("Application services initialized successfully.")
	return a, nil
}

func (a *App) setupCache(ctx context.Context) error {
	if !viper.GetBool("cache.enabled") {
		a.logger.Info("Page cache disabled")
		return nil
	}
	cache, err := fetch.NewPageCache(ctx, fetch.CacheConfig{
		Addr:     viper.GetString("cache.redis.addr"),
		Password: viper.GetString("cache.redis.password"),
		DB:       viper.GetInt("cache.redis.db"),
		TTLDays:  viper.GetInt("cache.ttl_days"),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize page cache: %w", err)
	}
	a.logger.Info("Using Redis page cache",
		zap.String("addr", viper.GetString("cache.redis.addr")),
		zap.Int("ttl_days", viper.GetInt("cache.ttl_days")),
	)
	a.cache = cache
	a.closers = append(a.closers, cache)
	return nil
}

func (a *App) setupFetcher() error {
	browser := viper.GetBool("scraper.browser")
	provider := viper.GetString("fetch.provider")

	var inner fetch.Fetcher
	switch provider {
	case "remote":
		apiKey := viper.GetString("fetch.remote.api_key")
		if apiKey == "" {
			return fmt.Errorf("fetch provider is 'remote' but fetch.remote.api_key is not set")
		}
		client, err := fetch.NewRemoteClient(fetch.RemoteConfig{
			APIKey:   apiKey,
			Endpoint: viper.GetString("fetch.remote.endpoint"),
			Browser:  browser,
			Timeout:  viper.GetDuration("fetch.remote.timeout"),
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize remote fetcher: %w", err)
		}
		a.logger.Info("Using managed scraping API", zap.Bool("browser", browser))
		inner = client
	case "local":
		cfg := fetch.LocalConfig{
			UserAgent:         viper.GetString("scraper.user_agent"),
			RequestTimeout:    viper.GetDuration("fetch.local.timeout"),
			MaxBodyBytes:      viper.GetInt64("fetch.local.max_body_bytes"),
			RenderTimeout:     viper.GetDuration("fetch.local.render_timeout"),
			RenderConcurrency: viper.GetInt("fetch.local.render_concurrency"),
			RenderDomainQPS:   viper.GetFloat64("fetch.local.render_domain_qps"),
		}
		robots := fetch.NewRobotsEnforcer(
			viper.GetBool("fetch.local.respect_robots"),
			cfg.UserAgent,
			a.logger,
		)
		plain, err := fetch.NewCollyFetcher(cfg, robots, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize local fetcher: %w", err)
		}
		if browser {
			renderer, rerr := fetch.NewChromedpRenderer(cfg, a.logger)
			if rerr != nil {
				return fmt.Errorf("failed to initialize renderer: %w", rerr)
			}
			a.closers = append(a.closers, renderer)
			detector := fetch.NewHeuristicDetector(0, nil, nil)
			inner = fetch.NewEscalatingFetcher(plain, renderer, detector, a.logger)
			a.logger.Info("Using local fetcher with headless rendering")
		} else {
			inner = plain
			a.logger.Info("Using local plain HTTP fetcher")
		}
	default:
		return fmt.Errorf("unknown fetch provider: %s", provider)
	}

	a.fetcher = fetch.NewCachedFetcher(
		inner,
		a.cache,
		browser,
		viper.GetBool("cache.force_refresh"),
		minimize.HTML,
		a.logger,
	)
	return nil
}

func (a *App) setupExtractor() error {
	agent, err := extract.NewAgent(extract.Config{
		APIKey:       viper.GetString("llm.api_key"),
		BaseURL:      viper.GetString("llm.base_url"),
		Model:        viper.GetString("llm.model"),
		PromptsFile:  viper.GetString("llm.prompts_file"),
		MaxHTMLBytes: viper.GetInt("llm.max_html_bytes"),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction agent: %w", err)
	}
	a.extractor = agent
	return nil
}

func (a *App) setupLedger(ctx context.Context) error {
	switch provider := viper.GetString("ledger.provider"); provider {
	case "file":
		path := viper.GetString("ledger.file.path")
		if path == "" {
			path = "processed.txt"
		}
		led, err := ledger.OpenFile(path)
		if err != nil {
			return fmt.Errorf("failed to initialize ledger: %w", err)
		}
		a.logger.Info("Using file ledger", zap.String("path", path), zap.Int("domains", led.Len()))
		a.ledger = led
	case "postgres":
		dsn := viper.GetString("ledger.postgres.dsn")
		if dsn == "" {
			return fmt.Errorf("ledger provider is 'postgres' but ledger.postgres.dsn is not set")
		}
		a.logger.Info("Connecting to PostgreSQL ledger...")
		led, err := ledger.NewPostgres(ctx, ledger.PostgresConfig{
			DSN:             dsn,
			Table:           viper.GetString("ledger.postgres.table"),
			MaxConns:        int32(viper.GetInt("ledger.postgres.max_conns")),
			MaxConnLifetime: viper.GetDuration("ledger.postgres.max_conn_lifetime"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize ledger: %w", err)
		}
		a.ledger = led
	case "noop":
		a.logger.Info("Using No-Op ledger. Processed domains will not be recorded.")
		a.ledger = ledger.NoOpLedger{}
	default:
		return fmt.Errorf("unknown ledger provider: %s", provider)
	}
	return nil
}

func (a *App) setupSink(ctx context.Context) error {
	switch provider := viper.GetString("sink.provider"); provider {
	case "local":
		dir := viper.GetString("scraper.output_dir")
		out, err := sink.NewLocalProvider(dir)
		if err != nil {
			return fmt.Errorf("failed to initialize sink: %w", err)
		}
		a.logger.Info("Writing results to local directory", zap.String("dir", dir))
		a.sink = out
	case "gcs":
		bucket := viper.GetString("sink.gcs.bucket_name")
		if bucket == "" {
			return fmt.Errorf("sink provider is 'gcs' but sink.gcs.bucket_name is not set")
		}
		a.logger.Info("Writing results to GCS", zap.String("bucket", bucket))
		out, err := sink.NewGCSProvider(ctx, bucket, viper.GetString("sink.gcs.prefix"))
		if err != nil {
			return fmt.Errorf("failed to initialize sink: %w", err)
		}
		a.sink = out
	case "noop":
		a.logger.Info("Using No-Op sink. Results will be discarded.")
		a.sink = &sink.NoOpProvider{}
	default:
		return fmt.Errorf("unknown sink provider: %s", provider)
	}
	return nil
}

func (a *App) setupNotifier(ctx context.Context) error {
	switch provider := viper.GetString("notify.provider"); provider {
	case "pubsub":
		projectID := viper.GetString("notify.gcp.project_id")
		topicID := viper.GetString("notify.gcp.topic_id")
		if projectID == "" || topicID == "" {
			return fmt.Errorf("notify provider is 'pubsub' but project_id or topic_id is not set")
		}
		a.logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", topicID))
		pub, err := notify.NewPubSub(ctx, projectID, topicID)
		if err != nil {
			return fmt.Errorf("failed to initialize notifier: %w", err)
		}
		a.notifier = pub
	case "noop":
		a.notifier = notify.NoOpProvider{}
	default:
		return fmt.Errorf("unknown notify provider: %s", provider)
	}
	return nil
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("Error closing ledger", zap.Error(err))
		}
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("Error closing notifier", zap.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("Error closing service", zap.Error(err))
		}
	}
	a.logger.Info("Application services shut down.")

	// Flush any buffered log entries last.
	_ = a.logger.Sync()
}
