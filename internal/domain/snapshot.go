package domain

import "time"

// PriceSnapshot is one immutable provider price observation. Snapshots
// are only ever inserted, never updated.
type PriceSnapshot struct {
	ID                int64
	Provider          Provider
	ProviderSource    string // endpoint/shape that produced the observation
	ProviderProductID string
	ProviderVariantID string
	SKU               string
	SizeKey           string
	SizeNumeric       *float64 // nil for non-numeric sizes like "14W"
	CurrencyCode      string
	RegionCode        string
	IsFlex            bool
	IsConsigned       bool
	LowestAsk         *float64
	HighestBid        *float64
	LastSalePrice     *float64
	SalesLast72h      *int
	SnapshotAt        time.Time
}

// LatestPrice is the most recent non-expired snapshot for one dimension
// tuple, as projected by the materializer.
type LatestPrice struct {
	PriceSnapshot
}

type FreshnessClass string

const (
	FreshnessFresh FreshnessClass = "fresh"
	FreshnessAging FreshnessClass = "aging"
	FreshnessStale FreshnessClass = "stale"
)

const (
	freshUpTo = 60 * time.Minute
	agingUpTo = 360 * time.Minute
)

// Freshness classifies a snapshot by its age at the moment of the call.
// Classification happens at query time so the label tracks wall-clock
// age even when the projection itself hasn't changed.
func (lp LatestPrice) Freshness(now time.Time) FreshnessClass {
	return ClassifyAge(now.Sub(lp.SnapshotAt))
}

func ClassifyAge(age time.Duration) FreshnessClass {
	switch {
	case age < freshUpTo:
		return FreshnessFresh
	case age < agingUpTo:
		return FreshnessAging
	default:
		return FreshnessStale
	}
}
