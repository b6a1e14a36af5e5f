package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"solesync/internal/domain"

	"github.com/google/uuid"
)

// MarketService is the engine surface the HTTP layer depends on.
type MarketService interface {
	RefreshSKU(ctx context.Context, sku string, priority int) ([]uuid.UUID, error)
	EnqueueJob(ctx context.Context, provider domain.Provider, sku, sizeKey string, priority int) (uuid.UUID, error)
	JobByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)
	CancelJob(ctx context.Context, id uuid.UUID) error
	UnifiedPrices(ctx context.Context, sku, sizeFilter, currency string) ([]domain.UnifiedRow, error)
}

type FxService interface {
	RateFor(ctx context.Context, date time.Time, from, to string) (float64, error)
}

type Validator interface {
	ValidateRefresh(sku string, priority int) error
	ValidateEnqueue(provider domain.Provider, sku string, priority int) error
	ValidateCurrency(code string) error
}

type Handler struct {
	service   MarketService
	fxService FxService
	validator Validator
}

func NewMarketHandler(service MarketService, fxService FxService, validator Validator) *Handler {
	return &Handler{service: service, fxService: fxService, validator: validator}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
