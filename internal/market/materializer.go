package market

import (
	"context"
	"fmt"
	"time"

	"solesync/internal/adapters"
)

// Materializer owns the latest-price projection. Refresh re-scans the
// trailing retention window and swaps the projection in; freshness is
// deliberately NOT stored here, it is classified at query time.
type Materializer struct {
	latest    adapters.LatestPriceRepository
	retention time.Duration
}

func (m *Materializer) Refresh(ctx context.Context) (int64, error) {
	rows, err := m.latest.Rebuild(ctx, m.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild latest prices: %w", err)
	}
	return rows, nil
}

func NewMaterializer(latest adapters.LatestPriceRepository, retention time.Duration) *Materializer {
	return &Materializer{latest: latest, retention: retention}
}
