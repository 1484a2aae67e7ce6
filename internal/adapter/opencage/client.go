// Package opencage implements the geocoding capability against the OpenCage
// Geocoding API.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/placesync/internal/domain"
	"github.com/couchcryptid/placesync/internal/observability"
)

const defaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// maxCandidates bounds how many matches one lookup may return.
const maxCandidates = 5

// Client implements domain.Geocoder using the OpenCage forward geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage geocoding client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves an address to ranked coordinate candidates.
func (c *Client) Geocode(ctx context.Context, addr domain.Address) ([]domain.GeocodingCandidate, error) {
	params := url.Values{
		"q":              {addr.Query()},
		"key":            {c.apiKey},
		"limit":          {fmt.Sprintf("%d", maxCandidates)},
		"no_annotations": {"1"},
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case len(candidates) == 0:
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return candidates, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodingCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("opencage API error: status %d: %s", resp.StatusCode, body)
	}

	var ocResp response
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candidates := make([]domain.GeocodingCandidate, 0, len(ocResp.Results))
	for _, r := range ocResp.Results {
		candidates = append(candidates, domain.GeocodingCandidate{
			Lat: r.Geometry.Lat,
			Lng: r.Geometry.Lng,
			// OpenCage scores confidence 1-10; normalize to 0.0-1.0.
			Confidence: float64(r.Confidence) / 10,
			Formatted:  r.Formatted,
		})
	}
	return candidates, nil
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Geometry   geometry `json:"geometry"`
	Confidence int      `json:"confidence"`
	Formatted  string   `json:"formatted"`
}

type geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
