// Package pricing computes checkout totals from per-currency unit prices,
// shipping by destination country and country tax rates.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// AnyCountry keys the fallback shipping rates used when a country has no entry
const AnyCountry = "*"

// RateCard holds shipping and tax rules for every supported currency
type RateCard struct {
	Currencies       map[valueobject.Currency]struct{}
	Shipping         map[string]map[valueobject.Currency]decimal.Decimal
	FreeShippingOver map[valueobject.Currency]decimal.Decimal
	TaxRates         map[string]decimal.Decimal
	DefaultTaxRate   decimal.Decimal
	TaxShipping      bool
}

// RateCardSpec is the textual form of a RateCard, as read from configuration.
// Country keys are ISO 3166-1 alpha-2 codes or AnyCountry; amounts and rates
// are decimal strings ("4.99", "0.20").
type RateCardSpec struct {
	Currencies       []string
	Shipping         map[string]map[string]string
	FreeShippingOver map[string]string
	TaxRates         map[string]string
	DefaultTaxRate   string
	TaxShipping      bool
}

// ParseRateCard validates a spec and converts it into a RateCard
func ParseRateCard(spec RateCardSpec) (RateCard, error) {
	card := RateCard{
		Currencies:       make(map[valueobject.Currency]struct{}, len(spec.Currencies)),
		Shipping:         make(map[string]map[valueobject.Currency]decimal.Decimal, len(spec.Shipping)),
		FreeShippingOver: make(map[valueobject.Currency]decimal.Decimal, len(spec.FreeShippingOver)),
		TaxRates:         make(map[string]decimal.Decimal, len(spec.TaxRates)),
		TaxShipping:      spec.TaxShipping,
	}

	if len(spec.Currencies) == 0 {
		return RateCard{}, fmt.Errorf("pricing: at least one currency is required")
	}
	for _, code := range spec.Currencies {
		c, err := valueobject.ParseCurrency(code)
		if err != nil {
			return RateCard{}, fmt.Errorf("pricing: %w", err)
		}
		card.Currencies[c] = struct{}{}
	}

	for country, rates := range spec.Shipping {
		key := normalizeCountryKey(country)
		byCurrency := make(map[valueobject.Currency]decimal.Decimal, len(rates))
		for code, amount := range rates {
			c, err := valueobject.ParseCurrency(code)
			if err != nil {
				return RateCard{}, fmt.Errorf("pricing: shipping %s: %w", key, err)
			}
			d, err := parseNonNegative(amount)
			if err != nil {
				return RateCard{}, fmt.Errorf("pricing: shipping %s/%s: %w", key, c, err)
			}
			byCurrency[c] = d
		}
		card.Shipping[key] = byCurrency
	}

	for code, amount := range spec.FreeShippingOver {
		c, err := valueobject.ParseCurrency(code)
		if err != nil {
			return RateCard{}, fmt.Errorf("pricing: free shipping threshold: %w", err)
		}
		d, err := parseNonNegative(amount)
		if err != nil {
			return RateCard{}, fmt.Errorf("pricing: free shipping threshold %s: %w", c, err)
		}
		card.FreeShippingOver[c] = d
	}

	for country, rate := range spec.TaxRates {
		d, err := parseRate(rate)
		if err != nil {
			return RateCard{}, fmt.Errorf("pricing: tax rate %s: %w", country, err)
		}
		card.TaxRates[normalizeCountryKey(country)] = d
	}

	card.DefaultTaxRate = decimal.Zero
	if spec.DefaultTaxRate != "" {
		d, err := parseRate(spec.DefaultTaxRate)
		if err != nil {
			return RateCard{}, fmt.Errorf("pricing: default tax rate: %w", err)
		}
		card.DefaultTaxRate = d
	}

	return card, nil
}

func normalizeCountryKey(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

func parseNonNegative(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q cannot be negative", s)
	}
	return d, nil
}

func parseRate(s string) (decimal.Decimal, error) {
	d, err := parseNonNegative(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %q must be a fraction between 0 and 1", s)
	}
	return d, nil
}
