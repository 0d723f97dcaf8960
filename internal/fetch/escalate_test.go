package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(Page), args.Error(1)
}

// MockDetector is a mock implementation of the Detector interface.
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) NeedsJS(ctx context.Context, page Page) bool {
	args := m.Called(ctx, page)
	return args.Bool(0)
}

func TestEscalatingFetcherPlainSufficient(t *testing.T) {
	plain := new(MockFetcher)
	renderer := new(MockFetcher)
	detector := new(MockDetector)

	page := Page{URL: "https://example.com", Body: []byte("full page")}
	plain.On("Fetch", mock.Anything, "https://example.com").Return(page, nil)
	detector.On("NeedsJS", mock.Anything, page).Return(false)

	f := NewEscalatingFetcher(plain, renderer, detector, zap.NewNop())
	got, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "full page", string(got.Body))
	renderer.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestEscalatingFetcherPromotesWhenNeedsJS(t *testing.T) {
	plain := new(MockFetcher)
	renderer := new(MockFetcher)
	detector := new(MockDetector)

	probe := Page{URL: "https://example.com", Body: []byte("shell")}
	rendered := Page{URL: "https://example.com", Body: []byte("hydrated"), Rendered: true}
	plain.On("Fetch", mock.Anything, "https://example.com").Return(probe, nil)
	detector.On("NeedsJS", mock.Anything, probe).Return(true)
	renderer.On("Fetch", mock.Anything, "https://example.com").Return(rendered, nil)

	f := NewEscalatingFetcher(plain, renderer, detector, zap.NewNop())
	got, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.True(t, got.Rendered)
	require.Equal(t, "hydrated", string(got.Body))
}

func TestEscalatingFetcherRenderFailureKeepsProbe(t *testing.T) {
	plain := new(MockFetcher)
	renderer := new(MockFetcher)
	detector := new(MockDetector)

	probe := Page{Body: []byte("shell")}
	plain.On("Fetch", mock.Anything, mock.Anything).Return(probe, nil)
	detector.On("NeedsJS", mock.Anything, probe).Return(true)
	renderer.On("Fetch", mock.Anything, mock.Anything).Return(Page{}, errors.New("chrome crashed"))

	f := NewEscalatingFetcher(plain, renderer, detector, zap.NewNop())
	got, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "shell", string(got.Body))
}

func TestEscalatingFetcherPlainErrorFallsBackToRenderer(t *testing.T) {
	plain := new(MockFetcher)
	renderer := new(MockFetcher)

	plain.On("Fetch", mock.Anything, mock.Anything).Return(Page{}, errors.New("blocked"))
	renderer.On("Fetch", mock.Anything, mock.Anything).Return(Page{Body: []byte("rendered"), Rendered: true}, nil)

	f := NewEscalatingFetcher(plain, renderer, new(MockDetector), zap.NewNop())
	got, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.True(t, got.Rendered)
}

func TestEscalatingFetcherRobotsDenialIsFinal(t *testing.T) {
	plain := new(MockFetcher)
	renderer := new(MockFetcher)

	plain.On("Fetch", mock.Anything, mock.Anything).Return(Page{}, ErrRobotsDisallowed)

	f := NewEscalatingFetcher(plain, renderer, new(MockDetector), zap.NewNop())
	_, err := f.Fetch(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrRobotsDisallowed)
	renderer.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestEscalatingFetcherNoRenderer(t *testing.T) {
	plain := new(MockFetcher)
	page := Page{Body: []byte("thin")}
	plain.On("Fetch", mock.Anything, mock.Anything).Return(page, nil)

	f := NewEscalatingFetcher(plain, nil, NewHeuristicDetector(1000, nil, nil), zap.NewNop())
	got, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "thin", string(got.Body))
}
