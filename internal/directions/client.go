// Package directions calls the Google Directions API for one route and
// returns the parsed response together with the verbatim body.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evrokas/route-tracker/internal/config"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// Result is one provider call: the decoded response plus the raw body,
// which is kept for the measurement audit trail.
type Result struct {
	Raw      []byte
	Response Response
}

// Client is a synchronous Directions API client with a bounded timeout.
type Client struct {
	baseURL      string
	apiKey       string
	language     string
	region       string
	alternatives bool
	client       *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		apiKey:       cfg.Google.APIKey,
		language:     cfg.Google.Language,
		region:       cfg.Google.Region,
		alternatives: cfg.Collection.RequestAlternatives,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL overrides the API endpoint. Tests point this at a local
// httptest server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Fetch requests traffic-aware directions for one origin/destination
// pair. A returned error is a transport failure; an application-level
// failure surfaces as Response.Status != "OK" with a nil error.
func (c *Client) Fetch(ctx context.Context, origin, destination, mode string) (*Result, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", mode)
	params.Set("departure_time", "now")
	params.Set("language", c.language)
	params.Set("region", c.region)
	params.Set("key", c.apiKey)
	if c.alternatives {
		params.Set("alternatives", "true")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call directions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &Result{Raw: body}
	if err := json.Unmarshal(body, &result.Response); err != nil {
		return nil, fmt.Errorf("failed to parse directions response: %w", err)
	}
	return result, nil
}
