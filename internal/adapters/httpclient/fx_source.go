package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"solesync/internal/domain"
)

// FxSourceClient pulls the daily GBP-pivot table from the exchange
// rates API.
type FxSourceClient struct {
	http    *http.Client
	baseURL string
}

type fxAPIResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (c *FxSourceClient) FetchPivotRates(ctx context.Context) (*domain.FxRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+domain.PivotCurrency, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fx rates request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute fx rates request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from fx rates api: %s", resp.StatusCode, resp.Status)
	}

	var body fxAPIResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode fx rates response: %w", err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("fx rates api returned non-success result: %s", body.Result)
	}

	// Response quotes GBP->X; the pivot table stores the inverse.
	usd, okUSD := body.ConversionRates["USD"]
	eur, okEUR := body.ConversionRates["EUR"]
	if !okUSD || !okEUR || usd <= 0 || eur <= 0 {
		return nil, fmt.Errorf("fx rates api response missing usable USD/EUR quotes")
	}

	now := time.Now().UTC()
	return &domain.FxRate{
		AsOf:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		GbpPerUsd: 1 / usd,
		GbpPerEur: 1 / eur,
		Source:    "exchangerate-api",
	}, nil
}

func NewFxSourceClient(httpClient *http.Client, baseURL string) *FxSourceClient {
	return &FxSourceClient{http: httpClient, baseURL: baseURL}
}
