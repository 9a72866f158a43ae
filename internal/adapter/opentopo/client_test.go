package opentopo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		dataset:    "srtm90m",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func elevationResponse(elevation *float64) response {
	return response{
		Status:  "OK",
		Results: []result{{Elevation: elevation}},
	}
}

func TestClient_Elevation_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "srtm90m")
		assert.Equal(t, "25.743900,89.275000", r.URL.Query().Get("locations"))

		ele := 14.7
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(elevationResponse(&ele)))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	meters, found, err := c.Elevation(context.Background(), 25.7439, 89.275)

	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 14.7, meters, 1e-9)
}

func TestClient_Elevation_NoCoverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(elevationResponse(nil)))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, found, err := c.Elevation(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.False(t, found, "null elevation is absence, not an error")
}

func TestClient_Elevation_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status":"INVALID_REQUEST"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, _, err := c.Elevation(context.Background(), 25.74, 89.27)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestClient_Elevation_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, _, err := c.Elevation(context.Background(), 25.74, 89.27)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Elevation_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := testClient(srv.URL)
	_, _, err := c.Elevation(ctx, 25.74, 89.27)
	require.Error(t, err)
}
