package market

import (
	"errors"

	"solesync/internal/domain"
)

var (
	ErrSKURequired        = errors.New("sku is required")
	ErrProviderRequired   = errors.New("provider is required")
	ErrProviderUnknown    = errors.New("provider not supported")
	ErrCurrencyUnknown    = errors.New("currency not supported")
	ErrPriorityOutOfRange = errors.New("priority must be between 0 and 100")
)

// Validator checks request inputs before they reach the engine.
type Validator struct {
	currencies map[string]struct{}
}

func (v *Validator) ValidateRefresh(sku string, priority int) error {
	if sku == "" {
		return ErrSKURequired
	}
	if priority < 0 || priority > 100 {
		return ErrPriorityOutOfRange
	}
	return nil
}

func (v *Validator) ValidateEnqueue(provider domain.Provider, sku string, priority int) error {
	if provider == "" {
		return ErrProviderRequired
	}
	if !provider.Valid() {
		return ErrProviderUnknown
	}
	return v.ValidateRefresh(sku, priority)
}

func (v *Validator) ValidateCurrency(code string) error {
	if code == "" {
		return nil // empty means "no conversion"
	}
	if _, ok := v.currencies[code]; !ok {
		return ErrCurrencyUnknown
	}
	return nil
}

func NewValidator(supportedCurrencies []string) *Validator {
	set := make(map[string]struct{}, len(supportedCurrencies))
	for _, c := range supportedCurrencies {
		set[c] = struct{}{}
	}
	return &Validator{currencies: set}
}
