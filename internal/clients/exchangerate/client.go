// Package exchangerate provides currency exchange rate fetching from exchangerate-api.com compatible providers.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public exchangerate-api.com v4 endpoint
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new exchangerate-api.com client.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// ratesResponse is the provider payload; only the rate table is used
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates fetches the complete rate table for base.
// The returned map holds multipliers such that amount_in_code = amount_in_base * rate.
func (c *Client) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log, providers often explain the failure
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("base", base).
			Str("body", string(snippet)).
			Msg("Rate provider returned error status")
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("response for %s contained no rates", base)
	}

	rates := make(map[string]float64, len(result.Rates))
	for code, rate := range result.Rates {
		if rate <= 0 {
			continue
		}
		rates[strings.ToUpper(code)] = rate
	}

	c.log.Info().
		Str("base", base).
		Int("currencies", len(rates)).
		Msg("Fetched rates")

	return rates, nil
}
