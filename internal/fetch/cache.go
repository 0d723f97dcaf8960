package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cacheKeyPrefix namespaces all page cache keys in Redis.
const cacheKeyPrefix = "scrape:html:"

// CacheConfig configures the Redis page cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTLDays  int
}

// PageCache stores minimized page HTML in Redis keyed by URL and fetch mode.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// cacheEntry is the JSON document stored per page.
type cacheEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// NewPageCache connects to Redis and verifies the connection with a ping.
func NewPageCache(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*PageCache, error) {
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = 100
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Debug("Failed to close redis client after ping failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &PageCache{
		client: client,
		ttl:    time.Duration(cfg.TTLDays) * 24 * time.Hour,
		logger: logger,
	}, nil
}

// NewPageCacheWithClient wraps an existing client, primarily for tests.
func NewPageCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PageCache {
	return &PageCache{client: client, ttl: ttl, logger: logger}
}

// Key derives the cache key for a URL and fetch mode. Browser-rendered and
// plain fetches of the same URL cache separately.
func (c *PageCache) Key(rawURL string, browser bool) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%t", rawURL, browser)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached content and its timestamp, or ok=false on a miss.
// Redis errors degrade to a miss so a cache outage never fails a fetch.
func (c *PageCache) Get(ctx context.Context, rawURL string, browser bool) (string, time.Time, bool) {
	data, err := c.client.Get(ctx, c.Key(rawURL, browser)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis get failed; treating as cache miss", zap.String("url", rawURL), zap.Error(err))
		}
		return "", time.Time{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Invalid cache entry; treating as miss", zap.String("url", rawURL), zap.Error(err))
		return "", time.Time{}, false
	}
	if entry.Content == "" {
		return "", time.Time{}, false
	}
	return entry.Content, entry.Timestamp, true
}

// Put stores content for a URL with the configured TTL.
func (c *PageCache) Put(ctx context.Context, rawURL string, browser bool, content string) error {
	if content == "" {
		return nil
	}
	data, err := json.Marshal(cacheEntry{Timestamp: time.Now().UTC(), Content: content})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(rawURL, browser), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear removes cache entries. With a URL it deletes both fetch-mode variants
// for that URL; without one it deletes the whole page cache namespace.
// It returns the number of keys removed.
func (c *PageCache) Clear(ctx context.Context, rawURL string) (int64, error) {
	if rawURL != "" {
		return c.client.Del(ctx, c.Key(rawURL, true), c.Key(rawURL, false)).Result()
	}
	var deleted int64
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del %s: %w", iter.Val(), err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}

// Close releases the underlying Redis connection.
func (c *PageCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// CachedFetcher wraps a Fetcher with the page cache. On a miss the inner
// fetcher runs, the body passes through Transform (typically the HTML
// minimizer), and the transformed content is what gets cached and returned.
type CachedFetcher struct {
	inner        Fetcher
	cache        *PageCache
	browser      bool
	forceRefresh bool
	transform    func(string) string
	logger       *zap.Logger
}

// NewCachedFetcher builds the caching wrapper. A nil transform passes bodies
// through unchanged; a nil cache makes the wrapper transparent.
func NewCachedFetcher(inner Fetcher, cache *PageCache, browser, forceRefresh bool, transform func(string) string, logger *zap.Logger) *CachedFetcher {
	if transform == nil {
		transform = func(s string) string { return s }
	}
	return &CachedFetcher{
		inner:        inner,
		cache:        cache,
		browser:      browser,
		forceRefresh: forceRefresh,
		transform:    transform,
		logger:       logger,
	}
}

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if f.cache != nil && !f.forceRefresh {
		if content, ts, ok := f.cache.Get(ctx, rawURL, f.browser); ok {
			f.logger.Info("Using cached page",
				zap.String("url", rawURL),
				zap.Duration("age", time.Since(ts)),
			)
			return Page{
				URL:        rawURL,
				FinalURL:   rawURL,
				StatusCode: http.StatusOK,
				Body:       []byte(content),
				Rendered:   f.browser,
				FromCache:  true,
				FetchedAt:  ts,
			}, nil
		}
	}

	page, err := f.inner.Fetch(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}
	page.Body = []byte(f.transform(string(page.Body)))
	if len(page.Body) == 0 {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, ErrEmptyBody)
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, rawURL, f.browser, string(page.Body)); err != nil {
			f.logger.Warn("Failed to cache page", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return page, nil
}
