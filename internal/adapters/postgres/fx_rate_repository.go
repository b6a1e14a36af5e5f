package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solesync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FxRateRepository struct {
	pool *pgxpool.Pool
}

func (r *FxRateRepository) GetOnOrBefore(ctx context.Context, date time.Time) (*domain.FxRate, error) {
	const q = `
		select as_of, gbp_per_usd, gbp_per_eur, source
		from fx_rates
		where as_of <= $1
		order by as_of desc
		limit 1;
	`

	var rate domain.FxRate
	err := r.pool.QueryRow(ctx, q, date).Scan(&rate.AsOf, &rate.GbpPerUsd, &rate.GbpPerEur, &rate.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoFxRate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select fx rate for %s: %w", date.Format(time.DateOnly), err)
	}
	return &rate, nil
}

// Upsert writes the pivot table for a date. Conflicts are same-day
// corrections and overwrite the existing row.
func (r *FxRateRepository) Upsert(ctx context.Context, rate domain.FxRate) error {
	const q = `
		insert into fx_rates (as_of, gbp_per_usd, gbp_per_eur, source)
		values ($1, $2, $3, $4)
		on conflict (as_of) do update
			set gbp_per_usd = excluded.gbp_per_usd,
				gbp_per_eur = excluded.gbp_per_eur,
				source = excluded.source;
	`

	if _, err := r.pool.Exec(ctx, q, rate.AsOf, rate.GbpPerUsd, rate.GbpPerEur, rate.Source); err != nil {
		return fmt.Errorf("failed to upsert fx rate for %s: %w", rate.AsOf.Format(time.DateOnly), err)
	}
	return nil
}

func NewFxRateRepository(pool *pgxpool.Pool) *FxRateRepository {
	return &FxRateRepository{pool: pool}
}
