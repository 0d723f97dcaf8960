// Package extract delegates structured extraction to an LLM agent: product
// page discovery, product records, and company records, all returned as
// typed JSON per a requested schema.
package extract

import "time"

// Product is a structured product record extracted from a page.
type Product struct {
	URL            string            `json:"url"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Price          string            `json:"price,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Availability   string            `json:"availability,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Category       string            `json:"category,omitempty"`
}

// Company is a structured company record extracted from a site.
type Company struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Website     string   `json:"website,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Address     string   `json:"address,omitempty"`
	Country     string   `json:"country,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	IsProducer  bool     `json:"is_producer,omitempty"`
}

// Discovery is the agent's answer to "which pages on this site are product pages".
type Discovery struct {
	ProductURLs []string `json:"product_urls"`
}

// SiteKind classifies what a site primarily presents.
type SiteKind struct {
	Kind string `json:"kind"` // "product" or "company"
}

// Metadata annotates a result file with how it was produced.
type Metadata struct {
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	ScrapeType string    `json:"scrape_type"`
	Attempts   int       `json:"attempts,omitempty"`
}

// Result is the JSON document written per processed site.
type Result struct {
	ProductURLs []string  `json:"product_urls,omitempty"`
	Products    []Product `json:"products,omitempty"`
	Company     *Company  `json:"company,omitempty"`
	Metadata    Metadata  `json:"metadata"`
}

// ProductCount returns how many product pages the result references.
func (r Result) ProductCount() int {
	if len(r.Products) > 0 {
		return len(r.Products)
	}
	return len(r.ProductURLs)
}
