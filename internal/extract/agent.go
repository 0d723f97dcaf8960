package extract

import (
	"context"
	"fmt"

	llmberjack "github.com/checkmarble/llmberjack"
	"github.com/checkmarble/llmberjack/llms/openai"
	"go.uber.org/zap"
)

// Extractor is what the batch driver depends on; Agent is the production
// implementation.
type Extractor interface {
	DiscoverProductURLs(ctx context.Context, siteURL, html string) (Discovery, error)
	ExtractProduct(ctx context.Context, pageURL, html string) (Product, error)
	ExtractCompany(ctx context.Context, siteURL, html string) (Company, error)
	Classify(ctx context.Context, siteURL, html string) (string, error)
}

// Config configures the extraction agent.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	PromptsFile  string
	MaxHTMLBytes int
}

// Agent performs typed extraction requests against an OpenAI-compatible
// provider.
type Agent struct {
	client       *llmberjack.Llmberjack
	prompts      *PromptStore
	maxHTMLBytes int
	logger       *zap.Logger
}

// NewAgent builds the LLM adapter and prompt store.
func NewAgent(cfg Config, logger *zap.Logger) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extract: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "o3-mini"
	}
	if cfg.MaxHTMLBytes <= 0 {
		cfg.MaxHTMLBytes = 50000
	}

	opts := []openai.Opt{openai.WithApiKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseUrl(cfg.BaseURL))
	}
	provider, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}

	client, err := llmberjack.New(
		llmberjack.WithProvider("main", provider),
		llmberjack.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm adapter: %w", err)
	}

	return &Agent{
		client:       client,
		prompts:      NewPromptStore(cfg.PromptsFile),
		maxHTMLBytes: cfg.MaxHTMLBytes,
		logger:       logger,
	}, nil
}

// DiscoverProductURLs asks the agent for every product detail page URL on a site.
func (a *Agent) DiscoverProductURLs(ctx context.Context, siteURL, html string) (Discovery, error) {
	discovery, err := ask[Discovery](ctx, a, PromptDiscoverURLs, siteURL, html)
	if err != nil {
		return Discovery{}, err
	}
	a.logger.Info("Discovered product URLs",
		zap.String("site", siteURL),
		zap.Int("count", len(discovery.ProductURLs)),
	)
	return discovery, nil
}

// ExtractProduct extracts a structured product record from a product page.
func (a *Agent) ExtractProduct(ctx context.Context, pageURL, html string) (Product, error) {
	product, err := ask[Product](ctx, a, PromptProduct, pageURL, html)
	if err != nil {
		return Product{}, err
	}
	if product.URL == "" {
		product.URL = pageURL
	}
	return product, nil
}

// ExtractCompany extracts a structured company record from a site.
func (a *Agent) ExtractCompany(ctx context.Context, siteURL, html string) (Company, error) {
	return ask[Company](ctx, a, PromptCompany, siteURL, html)
}

// Classify reports whether the site primarily presents products or a company.
func (a *Agent) Classify(ctx context.Context, siteURL, html string) (string, error) {
	kind, err := ask[SiteKind](ctx, a, PromptClassify, siteURL, html)
	if err != nil {
		return "", err
	}
	if kind.Kind != "product" && kind.Kind != "company" {
		return "", fmt.Errorf("classify %s: unexpected kind %q", siteURL, kind.Kind)
	}
	return kind.Kind, nil
}

// ask issues one typed request: instruction, task prompt, then the minimized
// HTML truncated to the configured cap.
func ask[T any](ctx context.Context, a *Agent, promptKey, url, html string) (T, error) {
	var zero T

	prompt := a.prompts.Get(promptKey, url)
	instruction := a.prompts.Get(PromptInstruction, url)

	resp, err := llmberjack.NewRequest[T]().
		WithInstruction(instruction).
		WithText(llmberjack.RoleUser, prompt).
		WithText(llmberjack.RoleUser, "HTML Content: "+truncateHTML(html, a.maxHTMLBytes)).
		Do(ctx, a.client)
	if err != nil {
		return zero, fmt.Errorf("llm request %s for %s: %w", promptKey, url, err)
	}

	out, err := resp.Get(0)
	if err != nil {
		return zero, fmt.Errorf("llm response %s for %s: %w", promptKey, url, err)
	}
	return out, nil
}

func truncateHTML(html string, maxBytes int) string {
	if maxBytes <= 0 || len(html) <= maxBytes {
		return html
	}
	return html[:maxBytes] + "..."
}
