package postgres

import (
	"context"
	"fmt"

	"solesync/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MappingRepository reads the catalog-mapping table owned by the
// surrounding product. This core only ever reads it.
type MappingRepository struct {
	pool *pgxpool.Pool
}

func (r *MappingRepository) MappingsFor(ctx context.Context, sku string) ([]domain.ProviderMapping, error) {
	const q = `
		select provider, sku, provider_product_id, coalesce(provider_variant_id, '')
		from provider_mappings
		where sku = $1
		order by provider;
	`

	rows, err := r.pool.Query(ctx, q, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings for %q: %w", sku, err)
	}
	defer rows.Close()

	mappings := make([]domain.ProviderMapping, 0, 4)
	for rows.Next() {
		var m domain.ProviderMapping
		if err = rows.Scan(&m.Provider, &m.SKU, &m.ProviderProductID, &m.ProviderVariantID); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}
	return mappings, nil
}

func NewMappingRepository(pool *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{pool: pool}
}
