// Package pricing resolves display prices per currency. Baseline prices live
// in the tenant's reference currency; other currencies are produced by
// conversion plus psychological rounding unless the product carries an
// explicit per-currency override, which always wins verbatim.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
)

// RateSource yields the conversion rate from the reference currency into a
// display currency for a tenant. Implementations may back this with a
// tenant rate table; absence falls through to the configured fallback.
type RateSource interface {
	Rate(ctx context.Context, tenantID string, currency enums.Currency) (decimal.Decimal, bool, error)
}

// StaticRates is a RateSource over a fixed currency->rate map.
type StaticRates map[enums.Currency]decimal.Decimal

// Rate implements RateSource.
func (s StaticRates) Rate(_ context.Context, _ string, currency enums.Currency) (decimal.Decimal, bool, error) {
	rate, ok := s[currency]
	return rate, ok, nil
}

// ServiceParams collects the resolver dependencies.
type ServiceParams struct {
	Config config.PricingConfig
	Rates  RateSource
}

// Service computes display prices and resolves the buyer's locale.
type Service struct {
	referenceCurrency enums.Currency
	fallbackRate      decimal.Decimal
	defaultLanguage   string
	rates             RateSource
}

// NewService validates dependencies and builds the resolver.
func NewService(params ServiceParams) (*Service, error) {
	ref, err := enums.ParseCurrency(params.Config.ReferenceCurrency)
	if err != nil {
		return nil, fmt.Errorf("pricing reference currency: %w", err)
	}
	if params.Config.FallbackRate <= 0 {
		return nil, fmt.Errorf("pricing fallback rate must be positive")
	}
	lang := strings.ToLower(strings.TrimSpace(params.Config.DefaultLanguage))
	if lang == "" {
		return nil, fmt.Errorf("pricing default language is required")
	}
	rates := params.Rates
	if rates == nil {
		rates = StaticRates{}
	}
	return &Service{
		referenceCurrency: ref,
		fallbackRate:      decimal.NewFromFloat(params.Config.FallbackRate),
		defaultLanguage:   lang,
		rates:             rates,
	}, nil
}

// ReferenceCurrency returns the currency baseline prices are stored in.
func (s *Service) ReferenceCurrency() enums.Currency {
	return s.referenceCurrency
}

// UnitPrice resolves the display price of one product unit in the requested
// currency. Resolution order: explicit per-currency override, then baseline
// for the reference currency, then conversion with psychological rounding.
func (s *Service) UnitPrice(ctx context.Context, product *models.Product, currency enums.Currency) (decimal.Decimal, error) {
	if product == nil {
		return decimal.Zero, fmt.Errorf("product is required")
	}
	if !currency.IsValid() {
		return decimal.Zero, fmt.Errorf("invalid currency %q", currency)
	}

	if override, ok := priceOverride(product, currency); ok {
		return override, nil
	}

	if currency == s.referenceCurrency {
		return product.BasePrice, nil
	}

	rate, ok, err := s.rates.Rate(ctx, product.TenantID, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("looking up rate for %s: %w", currency, err)
	}
	if !ok {
		rate = s.fallbackRate
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive rate for %s", currency)
	}

	converted := product.BasePrice.Mul(rate)
	return PsychologicalRound(converted), nil
}

// LineTotal resolves the display price for quantity units.
func (s *Service) LineTotal(ctx context.Context, product *models.Product, quantity int, currency enums.Currency) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, fmt.Errorf("quantity must be positive")
	}
	unit, err := s.UnitPrice(ctx, product, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// PsychologicalRound lifts an amount to the next multiple of ten, minus one,
// so converted prices land on 9-ended figures (151 -> 159, 370 -> 369).
func PsychologicalRound(amount decimal.Decimal) decimal.Decimal {
	if amount.Sign() <= 0 {
		return amount
	}
	ten := decimal.NewFromInt(10)
	return amount.Div(ten).Ceil().Mul(ten).Sub(decimal.NewFromInt(1))
}

var currencyByLanguage = map[string]enums.Currency{
	"he": enums.CurrencyILS,
	"en": enums.CurrencyUSD,
	"fr": enums.CurrencyEUR,
	"de": enums.CurrencyEUR,
}

// ResolveLanguage picks the display language: saved preference first, then
// the browser's language, then the configured default. Unsupported values
// are skipped.
func (s *Service) ResolveLanguage(saved, browser string) string {
	for _, candidate := range []string{saved, browser} {
		lang := normalizeLanguage(candidate)
		if _, ok := currencyByLanguage[lang]; ok {
			return lang
		}
	}
	return s.defaultLanguage
}

// CurrencyForLanguage maps a display language to its single display currency.
func (s *Service) CurrencyForLanguage(language string) enums.Currency {
	if currency, ok := currencyByLanguage[normalizeLanguage(language)]; ok {
		return currency
	}
	if currency, ok := currencyByLanguage[s.defaultLanguage]; ok {
		return currency
	}
	return s.referenceCurrency
}

func normalizeLanguage(raw string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	// "en-US" and friends collapse to the primary subtag.
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}
	return lang
}

func priceOverride(product *models.Product, currency enums.Currency) (decimal.Decimal, bool) {
	if len(product.PriceOverrides) == 0 {
		return decimal.Zero, false
	}
	var overrides map[string]decimal.Decimal
	if err := json.Unmarshal(product.PriceOverrides, &overrides); err != nil {
		return decimal.Zero, false
	}
	if value, ok := overrides[currency.String()]; ok {
		return value, true
	}
	return decimal.Zero, false
}
