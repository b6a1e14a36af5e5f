package market

import (
	"sort"
	"strings"
	"time"

	"solesync/internal/domain"
	"solesync/internal/size"
)

// Unify merges latest-price rows from all mapped providers into one row
// per physical size per variant lane (standard / flex / consigned kept
// as parallel rows, never averaged).
//
// Matching order:
//  1. exact size_numeric equality;
//  2. for rows missing a numeric on either side, case-normalized exact
//     match on the display key;
//  3. anything left unmatched becomes a provider-only row.
//
// When one provider carries two candidate rows for the same size key,
// the most recently observed one wins; ambiguity is resolved by
// recency, not rejected.
func Unify(rows []domain.LatestPrice, sizeFilter string, now time.Time) []domain.UnifiedRow {
	rows = filterBySize(rows, sizeFilter)

	type lane struct{ flex, consigned bool }
	byLane := make(map[lane][]domain.LatestPrice)
	for _, r := range rows {
		k := lane{r.IsFlex, r.IsConsigned}
		byLane[k] = append(byLane[k], r)
	}

	unified := make([]domain.UnifiedRow, 0, len(rows))
	for k, laneRows := range byLane {
		unified = append(unified, unifyLane(laneRows, k.flex, k.consigned, now)...)
	}

	sort.Slice(unified, func(i, j int) bool {
		a, b := unified[i], unified[j]
		if c := compareSizes(a, b); c != 0 {
			return c < 0
		}
		// standard < flex < consigned for the same size
		if a.IsFlex != b.IsFlex {
			return !a.IsFlex
		}
		return !a.IsConsigned
	})
	return unified
}

func unifyLane(rows []domain.LatestPrice, isFlex, isConsigned bool, now time.Time) []domain.UnifiedRow {
	// Deterministic pass order keeps output stable across calls.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].SnapshotAt.After(rows[j].SnapshotAt)
	})

	out := make([]*domain.UnifiedRow, 0, len(rows))
	for _, r := range rows {
		row := findMatch(out, r)
		if row == nil {
			row = &domain.UnifiedRow{
				SizeKey:     normalizeKey(r.SizeKey),
				SizeNumeric: r.SizeNumeric,
				IsFlex:      isFlex,
				IsConsigned: isConsigned,
				Quotes:      make(map[domain.Provider]domain.ProviderQuote),
			}
			out = append(out, row)
		}
		if existing, ok := row.Quotes[r.Provider]; ok && !r.SnapshotAt.After(existing.SnapshotAt) {
			// duplicate candidate from the same provider: keep the
			// more recent observation
			continue
		}
		if row.SizeNumeric == nil && r.SizeNumeric != nil {
			row.SizeNumeric = r.SizeNumeric
		}
		row.Quotes[r.Provider] = domain.ProviderQuote{
			ProviderProductID: r.ProviderProductID,
			ProviderVariantID: r.ProviderVariantID,
			CurrencyCode:      r.CurrencyCode,
			RegionCode:        r.RegionCode,
			LowestAsk:         r.LowestAsk,
			HighestBid:        r.HighestBid,
			LastSalePrice:     r.LastSalePrice,
			SnapshotAt:        r.SnapshotAt,
			Freshness:         r.Freshness(now),
		}
	}

	result := make([]domain.UnifiedRow, 0, len(out))
	for _, row := range out {
		result = append(result, *row)
	}
	return result
}

func findMatch(rows []*domain.UnifiedRow, r domain.LatestPrice) *domain.UnifiedRow {
	display := normalizeKey(r.SizeKey)
	for _, row := range rows {
		if r.SizeNumeric != nil && row.SizeNumeric != nil {
			if *r.SizeNumeric == *row.SizeNumeric {
				return row
			}
			continue
		}
		// numeric missing on one side: display string is the identity
		if row.SizeKey == display {
			return row
		}
	}
	return nil
}

func filterBySize(rows []domain.LatestPrice, sizeFilter string) []domain.LatestPrice {
	if sizeFilter == "" {
		return rows
	}
	want := size.Parse(sizeFilter)
	filtered := make([]domain.LatestPrice, 0, len(rows))
	for _, r := range rows {
		if want.Numeric != nil && r.SizeNumeric != nil {
			if *r.SizeNumeric == *want.Numeric {
				filtered = append(filtered, r)
			}
			continue
		}
		if normalizeKey(r.SizeKey) == want.Display {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// compareSizes orders numeric sizes ascending and places non-numeric
// sizes after them, sorted by display string.
func compareSizes(a, b domain.UnifiedRow) int {
	switch {
	case a.SizeNumeric != nil && b.SizeNumeric != nil:
		switch {
		case *a.SizeNumeric < *b.SizeNumeric:
			return -1
		case *a.SizeNumeric > *b.SizeNumeric:
			return 1
		}
		return strings.Compare(a.SizeKey, b.SizeKey)
	case a.SizeNumeric != nil:
		return -1
	case b.SizeNumeric != nil:
		return 1
	}
	return strings.Compare(a.SizeKey, b.SizeKey)
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
