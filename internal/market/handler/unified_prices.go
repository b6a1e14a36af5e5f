package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"solesync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type UnifiedQuote struct {
	ProductID     string    `json:"product_id"`
	VariantID     string    `json:"variant_id,omitempty"`
	Currency      string    `json:"currency" example:"GBP"`
	Region        string    `json:"region,omitempty"`
	LowestAsk     *float64  `json:"lowest_ask"`
	HighestBid    *float64  `json:"highest_bid"`
	LastSalePrice *float64  `json:"last_sale_price"`
	SnapshotAt    time.Time `json:"snapshot_at"`
	Freshness     string    `json:"freshness" example:"fresh"`
}

type UnifiedRowResponse struct {
	Size        string                  `json:"size" example:"10.5"`
	SizeNumeric *float64                `json:"size_numeric"`
	IsFlex      bool                    `json:"is_flex"`
	IsConsigned bool                    `json:"is_consigned"`
	Quotes      map[string]UnifiedQuote `json:"quotes"`
}

type UnifiedPricesResponse struct {
	SKU  string               `json:"sku"`
	Rows []UnifiedRowResponse `json:"rows"`
}

// UnifiedPrices godoc
// @Summary Read unified cross-provider prices for a SKU
// @Description One row per physical size per variant lane; providers with no matchable data are absent from a row's quotes.
// @Tags Prices
// @Produce json
// @Param sku path string true "SKU"
// @Param size query string false "Size filter, e.g. 10.5 or 14W"
// @Param currency query string false "Convert quotes to this currency (USD, EUR, GBP)"
// @Success 200 {object} UnifiedPricesResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse "sku has no catalog mapping"
// @Failure 500 {object} errorResponse
// @Router /prices/{sku} [get]
func (h *Handler) UnifiedPrices(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(chi.URLParam(r, "sku"))
	if sku == "" {
		writeError(w, http.StatusBadRequest, "sku is required")
		return
	}
	sizeFilter := strings.TrimSpace(r.URL.Query().Get("size"))
	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))

	if err := h.validator.ValidateCurrency(currency); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.service.UnifiedPrices(r.Context(), sku, sizeFilter, currency)
	if err != nil {
		if errors.Is(err, domain.ErrNoMapping) {
			writeError(w, http.StatusNotFound, "sku has no catalog mapping")
			return
		}
		if errors.Is(err, domain.ErrNoFxRate) {
			writeError(w, http.StatusUnprocessableEntity, "no fx rate available for conversion")
			return
		}
		msg := "failed to read unified prices"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "UnifiedPrices", "sku": sku}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	res := UnifiedPricesResponse{SKU: sku, Rows: make([]UnifiedRowResponse, 0, len(rows))}
	for _, row := range rows {
		out := UnifiedRowResponse{
			Size:        row.SizeKey,
			SizeNumeric: row.SizeNumeric,
			IsFlex:      row.IsFlex,
			IsConsigned: row.IsConsigned,
			Quotes:      make(map[string]UnifiedQuote, len(row.Quotes)),
		}
		for provider, q := range row.Quotes {
			out.Quotes[provider.String()] = UnifiedQuote{
				ProductID:     q.ProviderProductID,
				VariantID:     q.ProviderVariantID,
				Currency:      q.CurrencyCode,
				Region:        q.RegionCode,
				LowestAsk:     q.LowestAsk,
				HighestBid:    q.HighestBid,
				LastSalePrice: q.LastSalePrice,
				SnapshotAt:    q.SnapshotAt,
				Freshness:     string(q.Freshness),
			}
		}
		res.Rows = append(res.Rows, out)
	}
	writeJSON(w, http.StatusOK, res)
}
