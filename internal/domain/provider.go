package domain

// Provider identifies an external marketplace.
type Provider string

const (
	ProviderStockX Provider = "stockx"
	ProviderAlias  Provider = "alias"
	ProviderEbay   Provider = "ebay"
)

// KnownProviders lists every provider the engine can schedule work for.
var KnownProviders = []Provider{ProviderStockX, ProviderAlias, ProviderEbay}

func (p Provider) Valid() bool {
	for _, kp := range KnownProviders {
		if p == kp {
			return true
		}
	}
	return false
}

func (p Provider) String() string { return string(p) }

// ProviderMapping links an internal SKU to a provider's catalog ids.
// Resolved by the catalog mapping collaborator, not owned by this core.
type ProviderMapping struct {
	Provider          Provider
	SKU               string
	ProviderProductID string
	ProviderVariantID string // empty when the provider has no variant level
}
