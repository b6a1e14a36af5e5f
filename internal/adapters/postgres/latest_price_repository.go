package postgres

import (
	"context"
	"fmt"
	"time"

	"solesync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LatestPriceRepository struct {
	pool *pgxpool.Pool
}

// Rebuild recomputes the latest-price projection from the trailing
// retention window. The delete and insert run in one transaction, so
// readers keep seeing the previous projection until the commit swaps it
// in; the scan itself never blocks reads.
func (r *LatestPriceRepository) Rebuild(ctx context.Context, retention time.Duration) (int64, error) {
	const q = `
		insert into latest_prices (
			snapshot_id, provider, provider_source, provider_product_id, provider_variant_id,
			sku, size_key, size_numeric, currency_code, region_code,
			is_flex, is_consigned, lowest_ask, highest_bid, last_sale_price,
			sales_last_72h, snapshot_at
		)
		select distinct on (provider, provider_product_id, provider_variant_id, size_key, currency_code, region_code, is_flex, is_consigned)
			id, provider, provider_source, provider_product_id, provider_variant_id,
			sku, size_key, size_numeric, currency_code, region_code,
			is_flex, is_consigned, lowest_ask, highest_bid, last_sale_price,
			sales_last_72h, snapshot_at
		from price_snapshots
		where snapshot_at >= $1
		-- ties on snapshot_at resolved by insertion order, last write wins
		order by provider, provider_product_id, provider_variant_id, size_key, currency_code, region_code, is_flex, is_consigned,
			snapshot_at desc, id desc;
	`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `delete from latest_prices`); err != nil {
		return 0, fmt.Errorf("failed to clear latest prices: %w", err)
	}
	tag, err := tx.Exec(ctx, q, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild latest prices: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LatestPriceRepository) GetForMapping(ctx context.Context, m domain.ProviderMapping) ([]domain.LatestPrice, error) {
	const q = `
		select snapshot_id, provider, provider_source, provider_product_id, coalesce(provider_variant_id, ''),
			sku, size_key, size_numeric, currency_code, region_code,
			is_flex, is_consigned, lowest_ask, highest_bid, last_sale_price,
			sales_last_72h, snapshot_at
		from latest_prices
		where provider = $1 and provider_product_id = $2
		  and ($3 = '' or provider_variant_id = $3);
	`

	rows, err := r.pool.Query(ctx, q, m.Provider, m.ProviderProductID, m.ProviderVariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices for %s/%s: %w", m.Provider, m.ProviderProductID, err)
	}
	defer rows.Close()

	prices := make([]domain.LatestPrice, 0, 32)
	for rows.Next() {
		var lp domain.LatestPrice
		if err = rows.Scan(
			&lp.ID, &lp.Provider, &lp.ProviderSource, &lp.ProviderProductID, &lp.ProviderVariantID,
			&lp.SKU, &lp.SizeKey, &lp.SizeNumeric, &lp.CurrencyCode, &lp.RegionCode,
			&lp.IsFlex, &lp.IsConsigned, &lp.LowestAsk, &lp.HighestBid, &lp.LastSalePrice,
			&lp.SalesLast72h, &lp.SnapshotAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan latest price: %w", err)
		}
		prices = append(prices, lp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest prices: %w", err)
	}
	return prices, nil
}

func NewLatestPriceRepository(pool *pgxpool.Pool) *LatestPriceRepository {
	return &LatestPriceRepository{pool: pool}
}
