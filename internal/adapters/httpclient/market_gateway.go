package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"solesync/internal/adapters"
)

// MarketGatewayClient talks to one provider gateway, the service that
// wraps a marketplace's API and answers in the engine's normalized
// shape. Marketplace-specific request logic lives in those gateways,
// not here.
type MarketGatewayClient struct {
	http    *http.Client
	baseURL string
}

type gatewayEntry struct {
	Size          string   `json:"size"`
	LowestAsk     *float64 `json:"lowest_ask"`
	HighestBid    *float64 `json:"highest_bid"`
	LastSalePrice *float64 `json:"last_sale_price"`
	SalesLast72h  *int     `json:"sales_last_72h"`
	IsFlex        bool     `json:"is_flex"`
	IsConsigned   bool     `json:"is_consigned"`
}

type gatewayResponse struct {
	Source       string         `json:"source"`
	ProductID    string         `json:"product_id"`
	VariantID    string         `json:"variant_id"`
	CurrencyCode string         `json:"currency_code"`
	RegionCode   string         `json:"region_code"`
	Entries      []gatewayEntry `json:"entries"`
	ObservedAt   time.Time      `json:"observed_at"`
}

func (c *MarketGatewayClient) FetchMarket(ctx context.Context, productID, variantID, currency string) (*adapters.RawPriceResponse, error) {
	u, err := url.Parse(c.baseURL + "/market/" + url.PathEscape(productID))
	if err != nil {
		return nil, fmt.Errorf("failed to build market URL for %q: %w", productID, err)
	}
	qs := u.Query()
	if variantID != "" {
		qs.Set("variant", variantID)
	}
	if currency != "" {
		qs.Set("currency", currency)
	}
	u.RawQuery = qs.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create market request for %q: %w", productID, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute market request for %q: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for product %q: %s", resp.StatusCode, productID, resp.Status)
	}

	var body gatewayResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode market response for %q: %w", productID, err)
	}

	out := &adapters.RawPriceResponse{
		Source:       body.Source,
		ProductID:    body.ProductID,
		VariantID:    body.VariantID,
		CurrencyCode: body.CurrencyCode,
		RegionCode:   body.RegionCode,
		ObservedAt:   body.ObservedAt,
	}
	if out.ObservedAt.IsZero() {
		out.ObservedAt = time.Now().UTC()
	}
	for _, e := range body.Entries {
		out.Entries = append(out.Entries, adapters.RawPriceEntry{
			Size:          e.Size,
			LowestAsk:     e.LowestAsk,
			HighestBid:    e.HighestBid,
			LastSalePrice: e.LastSalePrice,
			SalesLast72h:  e.SalesLast72h,
			IsFlex:        e.IsFlex,
			IsConsigned:   e.IsConsigned,
		})
	}
	return out, nil
}

func NewMarketGatewayClient(httpClient *http.Client, baseURL string) *MarketGatewayClient {
	return &MarketGatewayClient{http: httpClient, baseURL: baseURL}
}
