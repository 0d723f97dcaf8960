package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/progress"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		resp.Body.Close()
	}
}

func TestStatusEndpointReturnsSnapshot(t *testing.T) {
	t.Parallel()

	tracker := progress.NewTracker(uuid.New(), 3, zap.NewNop())
	tracker.Emit(progress.Event{Stage: progress.StageURLSkip, URL: "https://a.com"})

	srv := NewServer(tracker, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap progress.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Equal(t, 3, snap.Total)
	require.Equal(t, 1, snap.Skipped)
}

func TestStatusEndpointWithoutTracker(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
