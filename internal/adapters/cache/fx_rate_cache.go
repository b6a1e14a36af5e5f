package cache

import (
	"fmt"
	"time"

	"solesync/internal/domain"

	"github.com/dgraph-io/ristretto"
)

// RistrettoFxRateCache caches resolved fx rate rows keyed by the
// requested date. Safe because rows are immutable once written, apart
// from same-day corrections which go through Invalidate.
type RistrettoFxRateCache struct {
	cache *ristretto.Cache
}

func NewFxRateCache(maxItems int64) (*RistrettoFxRateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create fx rate cache failed: %w", err)
	}
	return &RistrettoFxRateCache{cache: c}, nil
}

func (c *RistrettoFxRateCache) Get(date time.Time) (*domain.FxRate, bool) {
	if v, ok := c.cache.Get(toKey(date)); ok {
		rate, ok := v.(*domain.FxRate)
		return rate, ok
	}
	return nil, false
}

func (c *RistrettoFxRateCache) Set(date time.Time, rate *domain.FxRate) {
	c.cache.Set(toKey(date), rate, 1)
}

func (c *RistrettoFxRateCache) Invalidate(date time.Time) {
	c.cache.Del(toKey(date))
}

func (c *RistrettoFxRateCache) Close() { c.cache.Close() }

func toKey(d time.Time) string { return d.Format(time.DateOnly) }
