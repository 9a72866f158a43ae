// Package opentopo implements domain.ElevationProvider against the Open
// Topo Data API (https://www.opentopodata.org/). The public instance is
// rate limited to one call per second, so the collector wraps calls in a
// limiter and this package adds an LRU cache for repeated coordinates.
package opentopo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

// Client queries a single Open Topo Data dataset.
type Client struct {
	baseURL    string
	dataset    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an elevation client for the given dataset (for
// Bangladesh floodplains srtm90m is sufficient).
func NewClient(baseURL, dataset string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		dataset: dataset,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Elevation looks up terrain elevation in meters for a WGS-84 coordinate.
// A null elevation in the response (no dataset coverage) returns found=false.
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, bool, error) {
	params := url.Values{
		"locations": {fmt.Sprintf("%.6f,%.6f", lat, lon)},
	}
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(c.dataset), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues("elevation").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.EnrichmentRequests.WithLabelValues("elevation", "error").Inc()
		return 0, false, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.EnrichmentRequests.WithLabelValues("elevation", "error").Inc()
		return 0, false, fmt.Errorf("opentopodata API error: status %d: %s", resp.StatusCode, body)
	}

	var topoResp response
	if err := json.NewDecoder(resp.Body).Decode(&topoResp); err != nil {
		c.metrics.EnrichmentRequests.WithLabelValues("elevation", "error").Inc()
		return 0, false, fmt.Errorf("decode response: %w", err)
	}

	if topoResp.Status != "OK" || len(topoResp.Results) == 0 {
		c.metrics.EnrichmentRequests.WithLabelValues("elevation", "empty").Inc()
		return 0, false, nil
	}

	elevation := topoResp.Results[0].Elevation
	if elevation == nil {
		// Null elevation means no coverage at this location.
		c.metrics.EnrichmentRequests.WithLabelValues("elevation", "empty").Inc()
		return 0, false, nil
	}

	c.metrics.EnrichmentRequests.WithLabelValues("elevation", "success").Inc()
	return *elevation, true, nil
}

// Open Topo Data API response types.

type response struct {
	Status  string   `json:"status"`
	Results []result `json:"results"`
}

type result struct {
	Elevation *float64 `json:"elevation"`
}
