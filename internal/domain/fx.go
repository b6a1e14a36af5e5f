package domain

import "time"

// PivotCurrency is the single currency all cross rates are computed
// through.
const PivotCurrency = "GBP"

// SupportedCurrencies lists every currency the engine converts between.
var SupportedCurrencies = []string{PivotCurrency, "USD", "EUR"}

// FxRate is the GBP-pivot exchange rate table for one calendar date.
// Immutable once written, except same-day corrections via upsert.
type FxRate struct {
	AsOf      time.Time // date, midnight UTC
	GbpPerUsd float64
	GbpPerEur float64
	Source    string
}

// PivotFactor returns how many GBP one unit of the given currency buys.
func (r FxRate) PivotFactor(currency string) (float64, bool) {
	switch currency {
	case PivotCurrency:
		return 1.0, true
	case "USD":
		return r.GbpPerUsd, true
	case "EUR":
		return r.GbpPerEur, true
	}
	return 0, false
}

// Conversion is the permanent record of a monetary conversion made for
// a business event. Once stored on the event it never changes, even if
// the FX table is corrected later.
type Conversion struct {
	SourceAmount   float64
	SourceCurrency string
	Rate           float64
	Amount         float64 // converted amount
	Currency       string
	RateAsOf       time.Time // date of the FX row actually used
}
