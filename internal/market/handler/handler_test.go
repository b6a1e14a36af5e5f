package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solesync/internal/domain"
	"solesync/internal/market"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMarketService struct{ mock.Mock }

func (m *MockMarketService) RefreshSKU(ctx context.Context, sku string, priority int) ([]uuid.UUID, error) {
	args := m.Called(ctx, sku, priority)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *MockMarketService) EnqueueJob(ctx context.Context, provider domain.Provider, sku, sizeKey string, priority int) (uuid.UUID, error) {
	args := m.Called(ctx, provider, sku, sizeKey, priority)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *MockMarketService) JobByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*domain.SyncJob)
	return job, args.Error(1)
}

func (m *MockMarketService) CancelJob(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMarketService) UnifiedPrices(ctx context.Context, sku, sizeFilter, currency string) ([]domain.UnifiedRow, error) {
	args := m.Called(ctx, sku, sizeFilter, currency)
	rows, _ := args.Get(0).([]domain.UnifiedRow)
	return rows, args.Error(1)
}

type MockFxService struct{ mock.Mock }

func (m *MockFxService) RateFor(ctx context.Context, date time.Time, from, to string) (float64, error) {
	args := m.Called(ctx, date, from, to)
	return args.Get(0).(float64), args.Error(1)
}

type errorJSON struct {
	Error string `json:"error"`
}

func newTestHandler(service *MockMarketService, fxService *MockFxService) *Handler {
	return NewMarketHandler(service, fxService, market.NewValidator(domain.SupportedCurrencies))
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- Refresh ---

func TestHandler_Refresh_InvalidBody(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "RefreshSKU", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Refresh_UnknownFieldRejected(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh",
		bytes.NewBufferString(`{"sku": "DD1391-100", "bogus": true}`))
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Refresh_ValidationError(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh",
		bytes.NewBufferString(`{"sku": "", "priority": 10}`))
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	require.Equal(t, market.ErrSKURequired.Error(), ej.Error)
}

func TestHandler_Refresh_NoMapping(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	mockService.On("RefreshSKU", mock.Anything, "UNKNOWN-1", 0).
		Return(nil, domain.ErrNoMapping).Once()

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh",
		bytes.NewBufferString(`{"sku": "UNKNOWN-1"}`))
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_Refresh_Accepted(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	mockService.On("RefreshSKU", mock.Anything, "DD1391-100", 10).Return(ids, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh",
		bytes.NewBufferString(`{"sku": "DD1391-100", "priority": 10}`))
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var res RefreshResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, []string{ids[0].String(), ids[1].String()}, res.JobIDs)
	mockService.AssertExpectations(t)
}

// --- EnqueueJob ---

func TestHandler_EnqueueJob_UnknownProvider(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	req := httptest.NewRequest(http.MethodPost, "/jobs",
		bytes.NewBufferString(`{"provider": "goat", "sku": "DD1391-100"}`))
	rr := httptest.NewRecorder()

	h.EnqueueJob(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	require.Equal(t, market.ErrProviderUnknown.Error(), ej.Error)
}

func TestHandler_EnqueueJob_Accepted(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	id := uuid.New()
	mockService.On("EnqueueJob", mock.Anything, domain.ProviderStockX, "DD1391-100", "10.5", 5).
		Return(id, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/jobs",
		bytes.NewBufferString(`{"provider": "StockX", "sku": " DD1391-100 ", "size": "10.5", "priority": 5}`))
	rr := httptest.NewRecorder()

	h.EnqueueJob(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var res EnqueueJobResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, id.String(), res.JobID)
	mockService.AssertExpectations(t)
}

// --- GetJob ---

func TestHandler_GetJob_InvalidID(t *testing.T) {
	h := newTestHandler(new(MockMarketService), new(MockFxService))

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/jobs/nope", nil),
		map[string]string{"id": "nope"})
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_GetJob_NotFound(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	id := uuid.New()
	mockService.On("JobByID", mock.Anything, id).Return(nil, domain.ErrJobNotFound).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil),
		map[string]string{"id": id.String()})
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_GetJob_OK(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	id := uuid.New()
	job := &domain.SyncJob{
		ID:         id,
		Provider:   domain.ProviderAlias,
		SKU:        "DD1391-100",
		SizeKey:    "10.5",
		Priority:   7,
		Status:     domain.JobFailed,
		RetryCount: 3,
		LastError:  "upstream provider unavailable: timeout",
	}
	mockService.On("JobByID", mock.Anything, id).Return(job, nil).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil),
		map[string]string{"id": id.String()})
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res GetJobResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, id.String(), res.JobID)
	require.Equal(t, "alias", res.Provider)
	require.Equal(t, "failed", res.Status)
	require.Equal(t, 3, res.RetryCount)
	require.Contains(t, res.LastError, "upstream provider unavailable")
}

// --- CancelJob ---

func TestHandler_CancelJob_NotPending(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	id := uuid.New()
	mockService.On("CancelJob", mock.Anything, id).Return(domain.ErrJobNotCancelable).Once()

	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/jobs/"+id.String(), nil),
		map[string]string{"id": id.String()})
	rr := httptest.NewRecorder()

	h.CancelJob(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_CancelJob_NoContent(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	id := uuid.New()
	mockService.On("CancelJob", mock.Anything, id).Return(nil).Once()

	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/jobs/"+id.String(), nil),
		map[string]string{"id": id.String()})
	rr := httptest.NewRecorder()

	h.CancelJob(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
}

// --- UnifiedPrices ---

func TestHandler_UnifiedPrices_UnknownCurrency(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/prices/DD1391-100?currency=jpy", nil),
		map[string]string{"sku": "DD1391-100"})
	rr := httptest.NewRecorder()

	h.UnifiedPrices(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "UnifiedPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_UnifiedPrices_NoMapping(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	mockService.On("UnifiedPrices", mock.Anything, "UNKNOWN-1", "", "").
		Return(nil, domain.ErrNoMapping).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/prices/UNKNOWN-1", nil),
		map[string]string{"sku": "UNKNOWN-1"})
	rr := httptest.NewRecorder()

	h.UnifiedPrices(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_UnifiedPrices_OK(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	numeric := 10.5
	ask := 180.0
	rows := []domain.UnifiedRow{{
		SizeKey:     "10.5",
		SizeNumeric: &numeric,
		Quotes: map[domain.Provider]domain.ProviderQuote{
			domain.ProviderStockX: {
				ProviderProductID: "px-1",
				CurrencyCode:      "USD",
				LowestAsk:         &ask,
				SnapshotAt:        time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
				Freshness:         domain.FreshnessFresh,
			},
		},
	}}
	mockService.On("UnifiedPrices", mock.Anything, "DD1391-100", "10.5", "USD").
		Return(rows, nil).Once()

	req := withURLParams(
		httptest.NewRequest(http.MethodGet, "/prices/DD1391-100?size=10.5&currency=usd", nil),
		map[string]string{"sku": "DD1391-100"})
	rr := httptest.NewRecorder()

	h.UnifiedPrices(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res UnifiedPricesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "DD1391-100", res.SKU)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "10.5", res.Rows[0].Size)
	quote, ok := res.Rows[0].Quotes["stockx"]
	require.True(t, ok)
	require.Equal(t, "fresh", quote.Freshness)
	require.InDelta(t, 180.0, *quote.LowestAsk, 1e-9)
	mockService.AssertExpectations(t)
}

func TestHandler_UnifiedPrices_NoFxRate(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	mockService.On("UnifiedPrices", mock.Anything, "DD1391-100", "", "GBP").
		Return(nil, domain.ErrNoFxRate).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/prices/DD1391-100?currency=GBP", nil),
		map[string]string{"sku": "DD1391-100"})
	rr := httptest.NewRecorder()

	h.UnifiedPrices(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandler_UnifiedPrices_InternalError(t *testing.T) {
	mockService := new(MockMarketService)
	h := newTestHandler(mockService, new(MockFxService))

	mockService.On("UnifiedPrices", mock.Anything, "DD1391-100", "", "").
		Return(nil, errors.New("db down")).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/prices/DD1391-100", nil),
		map[string]string{"sku": "DD1391-100"})
	rr := httptest.NewRecorder()

	h.UnifiedPrices(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	require.Equal(t, "failed to read unified prices", ej.Error)
}

// --- FxRate ---

func TestHandler_FxRate_InvalidDate(t *testing.T) {
	h := newTestHandler(new(MockMarketService), new(MockFxService))

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/fx/January/USD/GBP", nil),
		map[string]string{"date": "January", "from": "USD", "to": "GBP"})
	rr := httptest.NewRecorder()

	h.FxRate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_FxRate_NoRate(t *testing.T) {
	mockFx := new(MockFxService)
	h := newTestHandler(new(MockMarketService), mockFx)

	mockFx.On("RateFor", mock.Anything, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "USD", "GBP").
		Return(0.0, domain.ErrNoFxRate).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/fx/2020-01-01/USD/GBP", nil),
		map[string]string{"date": "2020-01-01", "from": "USD", "to": "GBP"})
	rr := httptest.NewRecorder()

	h.FxRate(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	mockFx.AssertExpectations(t)
}

func TestHandler_FxRate_OK(t *testing.T) {
	mockFx := new(MockFxService)
	h := newTestHandler(new(MockMarketService), mockFx)

	mockFx.On("RateFor", mock.Anything, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "USD", "GBP").
		Return(0.79, nil).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/fx/2025-01-10/usd/gbp", nil),
		map[string]string{"date": "2025-01-10", "from": "usd", "to": "gbp"})
	rr := httptest.NewRecorder()

	h.FxRate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res FxRateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "USD", res.From)
	require.Equal(t, "GBP", res.To)
	require.InDelta(t, 0.79, res.Factor, 1e-9)
}
