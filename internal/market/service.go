package market

import (
	"context"
	"fmt"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/domain"
	"solesync/internal/fx"

	"github.com/google/uuid"
)

// Service is the caller-facing surface of the engine: enqueue refresh
// work, inspect jobs and read unified pricing.
type Service struct {
	jobs     adapters.JobRepository
	latest   adapters.LatestPriceRepository
	mappings adapters.MappingResolver
	fx       *fx.Service
}

// RefreshSKU enqueues one fetch job per mapped provider. Enqueueing is
// idempotent per dedupe key: a refresh requested while an identical job
// is already in flight returns that job's id.
func (s *Service) RefreshSKU(ctx context.Context, sku string, priority int) ([]uuid.UUID, error) {
	mappings, err := s.mappings.MappingsFor(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mappings for %q: %w", sku, err)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoMapping, sku)
	}

	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		id, enqErr := s.jobs.EnqueueOrGetExisting(ctx, m.Provider, sku, "", priority)
		if enqErr != nil {
			return nil, enqErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EnqueueJob schedules a single (provider, sku, size) fetch.
func (s *Service) EnqueueJob(ctx context.Context, provider domain.Provider, sku, sizeKey string, priority int) (uuid.UUID, error) {
	mappings, err := s.mappings.MappingsFor(ctx, sku)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve mappings for %q: %w", sku, err)
	}
	mapped := false
	for _, m := range mappings {
		if m.Provider == provider {
			mapped = true
			break
		}
	}
	if !mapped {
		return uuid.Nil, fmt.Errorf("%w: %s for provider %s", domain.ErrNoMapping, sku, provider)
	}
	return s.jobs.EnqueueOrGetExisting(ctx, provider, sku, sizeKey, priority)
}

func (s *Service) JobByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// CancelJob removes a pending job from the claimable set. Running jobs
// cannot be cancelled mid-flight.
func (s *Service) CancelJob(ctx context.Context, id uuid.UUID) error {
	return s.jobs.CancelPending(ctx, id)
}

// UnifiedPrices merges the latest prices of every mapped provider into
// one row per physical size, optionally filtered to one size and
// converted to the requested currency. Missing provider data yields
// provider-only rows, never an error; only an absent catalog mapping
// fails the read.
func (s *Service) UnifiedPrices(ctx context.Context, sku, sizeFilter, currency string) ([]domain.UnifiedRow, error) {
	mappings, err := s.mappings.MappingsFor(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mappings for %q: %w", sku, err)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoMapping, sku)
	}

	var rows []domain.LatestPrice
	for _, m := range mappings {
		prices, getErr := s.latest.GetForMapping(ctx, m)
		if getErr != nil {
			return nil, getErr
		}
		rows = append(rows, prices...)
	}

	now := time.Now()
	unified := Unify(rows, sizeFilter, now)
	if currency == "" {
		return unified, nil
	}
	if err = s.convertRows(ctx, unified, currency, now); err != nil {
		return nil, err
	}
	return unified, nil
}

func (s *Service) convertRows(ctx context.Context, rows []domain.UnifiedRow, currency string, now time.Time) error {
	for _, row := range rows {
		for provider, quote := range row.Quotes {
			if quote.CurrencyCode == currency {
				continue
			}
			factor, err := s.fx.RateFor(ctx, now, quote.CurrencyCode, currency)
			if err != nil {
				return fmt.Errorf("failed to convert %s quote to %s: %w", provider, currency, err)
			}
			quote.LowestAsk = scale(quote.LowestAsk, factor)
			quote.HighestBid = scale(quote.HighestBid, factor)
			quote.LastSalePrice = scale(quote.LastSalePrice, factor)
			quote.CurrencyCode = currency
			row.Quotes[provider] = quote
		}
	}
	return nil
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * factor
	return &scaled
}

func NewService(jobs adapters.JobRepository, latest adapters.LatestPriceRepository, mappings adapters.MappingResolver, fxService *fx.Service) *Service {
	return &Service{jobs: jobs, latest: latest, mappings: mappings, fx: fxService}
}
