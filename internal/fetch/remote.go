package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultRemoteEndpoint is the managed extraction endpoint used unless
// overridden in configuration.
const DefaultRemoteEndpoint = "https://api.zyte.com/v1/extract"

// maxRemoteResponseBytes bounds how much of the API response is read.
const maxRemoteResponseBytes = 64 << 20

// RemoteConfig configures the managed scraping API client.
type RemoteConfig struct {
	APIKey   string
	Endpoint string
	Browser  bool
	Timeout  time.Duration
}

// RemoteClient fetches rendered HTML through a managed scraping API. The API
// takes a JSON payload and returns either browser-rendered HTML or the raw
// HTTP response body, depending on the requested mode.
type RemoteClient struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.Logger
}

// NewRemoteClient validates the config and constructs a client.
func NewRemoteClient(cfg RemoteConfig, logger *zap.Logger) (*RemoteClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote fetch: api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRemoteEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RemoteClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

type remotePayload struct {
	URL              string `json:"url"`
	BrowserHTML      bool   `json:"browserHtml,omitempty"`
	HTTPResponseBody bool   `json:"httpResponseBody,omitempty"`
}

type remoteResponse struct {
	URL              string `json:"url"`
	StatusCode       int    `json:"statusCode"`
	BrowserHTML      string `json:"browserHtml"`
	HTTPResponseBody string `json:"httpResponseBody"`
}

// Fetch posts the URL to the extraction API and returns the rendered page.
func (c *RemoteClient) Fetch(ctx context.Context, rawURL string) (Page, error) {
	payload := remotePayload{URL: rawURL}
	if c.cfg.Browser {
		payload.BrowserHTML = true
	} else {
		payload.HTTPResponseBody = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Page{}, fmt.Errorf("marshal fetch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("new fetch request: %w", err)
	}
	// The API authenticates via basic auth with the key as username.
	req.SetBasicAuth(c.cfg.APIKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("remote fetch %s: %w", rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close remote fetch body", zap.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read remote fetch body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("remote fetch %s: status %d: %s", rawURL, resp.StatusCode, truncate(raw, 200))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Page{}, fmt.Errorf("decode remote fetch response: %w", err)
	}

	html := parsed.HTTPResponseBody
	if c.cfg.Browser {
		html = parsed.BrowserHTML
	}
	if html == "" {
		return Page{}, fmt.Errorf("remote fetch %s: %w", rawURL, ErrEmptyBody)
	}

	finalURL := parsed.URL
	if finalURL == "" {
		finalURL = rawURL
	}
	statusCode := parsed.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	c.logger.Info("Fetched page via remote API",
		zap.String("url", rawURL),
		zap.Int("bytes", len(html)),
		zap.Bool("browser", c.cfg.Browser),
		zap.Duration("duration", time.Since(start)),
	)

	return Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: statusCode,
		Body:       []byte(html),
		Rendered:   c.cfg.Browser,
		FetchedAt:  time.Now().UTC(),
		Duration:   time.Since(start),
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
