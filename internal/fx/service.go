// Package fx resolves date-pinned, GBP-pivot exchange rates and
// converts monetary amounts between the supported currencies.
package fx

import (
	"context"
	"fmt"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/domain"
)

type Service struct {
	repo  adapters.FxRateRepository
	cache adapters.FxRateCache
}

// RateFor resolves the conversion factor from one currency to another
// as of the given date. Missing dates fall back to the most recent
// prior row, never a future one; a date preceding all recorded rates
// surfaces domain.ErrNoFxRate.
func (s *Service) RateFor(ctx context.Context, date time.Time, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	rate, err := s.rateRow(ctx, truncateToDate(date))
	if err != nil {
		return 0, err
	}

	fromPivot, ok := rate.PivotFactor(from)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedCcy, from)
	}
	toPivot, ok := rate.PivotFactor(to)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedCcy, to)
	}
	return fromPivot / toPivot, nil
}

// Convert converts an amount between currencies at the rate for the
// given date.
func (s *Service) Convert(ctx context.Context, date time.Time, amount float64, from, to string) (float64, error) {
	factor, err := s.RateFor(ctx, date, from, to)
	if err != nil {
		return 0, err
	}
	return amount * factor, nil
}

// ConvertForEvent converts an amount for a business event (a purchase
// or sale) and returns the full conversion record to be stored on the
// event. The stored figures never change, even if the FX table for that
// date is corrected afterwards.
func (s *Service) ConvertForEvent(ctx context.Context, eventDate time.Time, amount float64, from, to string) (*domain.Conversion, error) {
	date := truncateToDate(eventDate)
	factor, err := s.RateFor(ctx, date, from, to)
	if err != nil {
		return nil, err
	}

	rate, err := s.rateRow(ctx, date)
	if err != nil {
		return nil, err
	}

	return &domain.Conversion{
		SourceAmount:   amount,
		SourceCurrency: from,
		Rate:           factor,
		Amount:         amount * factor,
		Currency:       to,
		RateAsOf:       rate.AsOf,
	}, nil
}

// RecordDailyRates upserts today's pivot table fetched from the
// external source and drops any cached row for that date so same-day
// corrections become visible.
func (s *Service) RecordDailyRates(ctx context.Context, rate domain.FxRate) error {
	rate.AsOf = truncateToDate(rate.AsOf)
	if err := s.repo.Upsert(ctx, rate); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(rate.AsOf)
	}
	return nil
}

func (s *Service) rateRow(ctx context.Context, date time.Time) (*domain.FxRate, error) {
	if s.cache != nil {
		if rate, ok := s.cache.Get(date); ok {
			return rate, nil
		}
	}
	rate, err := s.repo.GetOnOrBefore(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(date, rate)
	}
	return rate, nil
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func NewService(repo adapters.FxRateRepository, cache adapters.FxRateCache) *Service {
	return &Service{repo: repo, cache: cache}
}
