package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solesync/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SnapshotRepository struct {
	pool *pgxpool.Pool
}

type snapshotRow struct {
	Provider          domain.Provider `json:"provider"`
	ProviderSource    string          `json:"provider_source"`
	ProviderProductID string          `json:"provider_product_id"`
	ProviderVariantID string          `json:"provider_variant_id"`
	SKU               string          `json:"sku"`
	SizeKey           string          `json:"size_key"`
	SizeNumeric       *float64        `json:"size_numeric"`
	CurrencyCode      string          `json:"currency_code"`
	RegionCode        string          `json:"region_code"`
	IsFlex            bool            `json:"is_flex"`
	IsConsigned       bool            `json:"is_consigned"`
	LowestAsk         *float64        `json:"lowest_ask"`
	HighestBid        *float64        `json:"highest_bid"`
	LastSalePrice     *float64        `json:"last_sale_price"`
	SalesLast72h      *int            `json:"sales_last_72h"`
	SnapshotAt        time.Time       `json:"snapshot_at"`
}

// InsertBatch appends a batch of observations. A duplicate dimension
// tuple + snapshot_at means another actor already recorded the same
// observation; the conflict is skipped, not raised.
func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []domain.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	payload := make([]snapshotRow, 0, len(snapshots))
	for _, s := range snapshots {
		payload = append(payload, snapshotRow{
			Provider:          s.Provider,
			ProviderSource:    s.ProviderSource,
			ProviderProductID: s.ProviderProductID,
			ProviderVariantID: s.ProviderVariantID,
			SKU:               s.SKU,
			SizeKey:           s.SizeKey,
			SizeNumeric:       s.SizeNumeric,
			CurrencyCode:      s.CurrencyCode,
			RegionCode:        s.RegionCode,
			IsFlex:            s.IsFlex,
			IsConsigned:       s.IsConsigned,
			LowestAsk:         s.LowestAsk,
			HighestBid:        s.HighestBid,
			LastSalePrice:     s.LastSalePrice,
			SalesLast72h:      s.SalesLast72h,
			SnapshotAt:        s.SnapshotAt,
		})
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	const q = `
		insert into price_snapshots (
			provider, provider_source, provider_product_id, provider_variant_id,
			sku, size_key, size_numeric, currency_code, region_code,
			is_flex, is_consigned, lowest_ask, highest_bid, last_sale_price,
			sales_last_72h, snapshot_at
		)
		select
			r.provider, r.provider_source, r.provider_product_id, r.provider_variant_id,
			r.sku, r.size_key, r.size_numeric, r.currency_code, r.region_code,
			r.is_flex, r.is_consigned, r.lowest_ask, r.highest_bid, r.last_sale_price,
			r.sales_last_72h, r.snapshot_at
		from json_to_recordset($1::json) as r(
			provider text, provider_source text, provider_product_id text, provider_variant_id text,
			sku text, size_key text, size_numeric double precision, currency_code text, region_code text,
			is_flex boolean, is_consigned boolean, lowest_ask double precision, highest_bid double precision,
			last_sale_price double precision, sales_last_72h int, snapshot_at timestamptz
		)
		on conflict do nothing;
	`

	if _, err = r.pool.Exec(ctx, q, json.RawMessage(payloadJSON)); err != nil {
		return fmt.Errorf("failed to insert snapshots: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `delete from price_snapshots where snapshot_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}
