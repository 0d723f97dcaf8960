package extract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExtractor is a mock implementation of the Extractor interface for testing.
type MockExtractor struct {
	mock.Mock
}

// DiscoverProductURLs is the mock implementation of the DiscoverProductURLs method.
func (m *MockExtractor) DiscoverProductURLs(ctx context.Context, siteURL, html string) (Discovery, error) {
	args := m.Called(ctx, siteURL, html)
	discovery, _ := args.Get(0).(Discovery)
	return discovery, args.Error(1)
}

// ExtractProduct is the mock implementation of the ExtractProduct method.
func (m *MockExtractor) ExtractProduct(ctx context.Context, pageURL, html string) (Product, error) {
	args := m.Called(ctx, pageURL, html)
	product, _ := args.Get(0).(Product)
	return product, args.Error(1)
}

// ExtractCompany is the mock implementation of the ExtractCompany method.
func (m *MockExtractor) ExtractCompany(ctx context.Context, siteURL, html string) (Company, error) {
	args := m.Called(ctx, siteURL, html)
	company, _ := args.Get(0).(Company)
	return company, args.Error(1)
}

// Classify is the mock implementation of the Classify method.
func (m *MockExtractor) Classify(ctx context.Context, siteURL, html string) (string, error) {
	args := m.Called(ctx, siteURL, html)
	return args.String(0), args.Error(1)
}
