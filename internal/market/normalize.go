package market

import (
	"solesync/internal/adapters"
	"solesync/internal/domain"
	"solesync/internal/size"
)

// snapshotsFromResponse turns one provider response into snapshot rows.
// A single response may fan out into several rows per size (standard,
// flex, consigned entries). When the job targets one size, entries for
// other sizes are dropped.
func snapshotsFromResponse(job domain.SyncJob, mapping domain.ProviderMapping, resp *adapters.RawPriceResponse) []domain.PriceSnapshot {
	productID := resp.ProductID
	if productID == "" {
		productID = mapping.ProviderProductID
	}
	variantID := resp.VariantID
	if variantID == "" {
		variantID = mapping.ProviderVariantID
	}

	var wantSize string
	if job.SizeKey != "" {
		wantSize = size.Parse(job.SizeKey).Display
	}

	snapshots := make([]domain.PriceSnapshot, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		parsed := size.Parse(e.Size)
		if parsed.Display == "" {
			continue
		}
		if wantSize != "" && parsed.Display != wantSize {
			continue
		}
		snapshots = append(snapshots, domain.PriceSnapshot{
			Provider:          job.Provider,
			ProviderSource:    resp.Source,
			ProviderProductID: productID,
			ProviderVariantID: variantID,
			SKU:               job.SKU,
			SizeKey:           parsed.Display,
			SizeNumeric:       parsed.Numeric,
			CurrencyCode:      resp.CurrencyCode,
			RegionCode:        resp.RegionCode,
			IsFlex:            e.IsFlex,
			IsConsigned:       e.IsConsigned,
			LowestAsk:         e.LowestAsk,
			HighestBid:        e.HighestBid,
			LastSalePrice:     e.LastSalePrice,
			SalesLast72h:      e.SalesLast72h,
			SnapshotAt:        resp.ObservedAt,
		})
	}
	return snapshots
}
