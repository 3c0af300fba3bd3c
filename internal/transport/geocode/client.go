// Package geocode is the geocoding collaborator: it resolves a document's
// free-text location into a geo summary via a remote REST service.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/metrics"
)

// DefaultTimeout is the fixed service timeout when none is configured.
const DefaultTimeout = 10 * time.Second

const collaboratorName = "geocoding"

// Client calls the geocoding service.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// Config holds the geocoding service settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a geocoding collaborator client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("geocoding base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   cfg.BaseURL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// GeoSummarize implements enrich.Geocoder: the document is posted to the
// service and the returned geo JSON comes back verbatim.
func (c *Client) GeoSummarize(ctx context.Context, doc map[string]any) (map[string]any, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document for geocoding: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/geosummarize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build geocoding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, fmt.Errorf("read geocoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var geo map[string]any
	if err := json.Unmarshal(data, &geo); err != nil {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "success").Inc()
	metrics.EnrichmentRequestDuration.WithLabelValues(collaboratorName).Observe(duration.Seconds())

	return geo, nil
}
