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

type BudgetRepository struct {
	pool *pgxpool.Pool
}

// TryReserve grants up to n tokens against the (provider, hour window)
// bucket, clamped to what is left. The reservation itself is a single
// lock-then-increment statement, so concurrent grants for the same
// window can never sum past rate_limit.
func (r *BudgetRepository) TryReserve(ctx context.Context, provider domain.Provider, hourWindow time.Time, n, rateLimit int) (int, int, error) {
	// Windows are created lazily on first reservation; a duplicate
	// insert from a concurrent caller is expected and ignored.
	_, err := r.pool.Exec(ctx, `
		insert into provider_budgets (provider, hour_window, rate_limit, used)
		values ($1, $2, $3, 0)
		on conflict (provider, hour_window) do nothing;
	`, provider, hourWindow, rateLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to ensure budget window for %q: %w", provider, err)
	}

	const q = `
		with locked as (
			select provider, hour_window, rate_limit, used
			from provider_budgets
			where provider = $1 and hour_window = $2
			for update
		)
		update provider_budgets b
		set used = b.used + least($3, l.rate_limit - l.used)
		from locked l
		where b.provider = l.provider and b.hour_window = l.hour_window
		returning least($3, l.rate_limit - l.used) as granted, b.rate_limit - b.used as remaining;
	`

	var granted, remaining int
	err = r.pool.QueryRow(ctx, q, provider, hourWindow, n).Scan(&granted, &remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("budget window for %q vanished mid-reserve", provider)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reserve budget for %q: %w", provider, err)
	}
	return granted, remaining, nil
}

func (r *BudgetRepository) PruneWindows(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `delete from provider_budgets where hour_window < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune budget windows: %w", err)
	}
	return tag.RowsAffected(), nil
}

func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}
