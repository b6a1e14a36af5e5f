package domain

import "time"

// ProviderQuote is one provider's contribution to a unified row.
type ProviderQuote struct {
	ProviderProductID string
	ProviderVariantID string
	CurrencyCode      string
	RegionCode        string
	LowestAsk         *float64
	HighestBid        *float64
	LastSalePrice     *float64
	SnapshotAt        time.Time
	Freshness         FreshnessClass
}

// UnifiedRow merges the latest prices of all mapped providers for one
// physical size within one variant lane (standard / flex / consigned).
// Providers with no matchable data for the size are simply absent from
// Quotes; unmatched is an expected outcome, not an error.
type UnifiedRow struct {
	SizeKey     string
	SizeNumeric *float64
	IsFlex      bool
	IsConsigned bool
	Quotes      map[Provider]ProviderQuote
}
