package ledger

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockLedger is a mock implementation of the Ledger interface for testing.
type MockLedger struct {
	mock.Mock
}

// Contains is the mock implementation of the Contains method.
func (m *MockLedger) Contains(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

// Record is the mock implementation of the Record method.
func (m *MockLedger) Record(ctx context.Context, domain string, productCount int) error {
	args := m.Called(ctx, domain, productCount)
	return args.Error(0)
}

// Close is the mock implementation of the Close method.
func (m *MockLedger) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
