package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Line is one cart line to be priced
type Line struct {
	SKUID     uuid.UUID
	SKUCode   string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// PricedLine is a line with its rounded total
type PricedLine struct {
	Line
	LineTotal valueobject.Money
}

// Quote is the priced snapshot of a cart
type Quote struct {
	Currency valueobject.Currency
	Country  string
	Lines    []PricedLine
	Subtotal valueobject.Money
	Shipping valueobject.Money
	Tax      valueobject.Money
	TaxRate  decimal.Decimal
	Total    valueobject.Money
}

// Calculator prices carts against a RateCard. It holds no state beyond the
// card and is safe for concurrent use.
type Calculator struct {
	card RateCard
}

// NewCalculator creates a calculator for the given rate card
func NewCalculator(card RateCard) *Calculator {
	return &Calculator{card: card}
}

// ResolveCurrency normalizes a currency code and checks it is sold in
func (c *Calculator) ResolveCurrency(code string) (valueobject.Currency, error) {
	cur, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.NewDomainErrorf(shared.ErrUnsupportedCurrency.Code, "Currency %q is not supported", code)
	}
	if _, ok := c.card.Currencies[cur]; !ok {
		return "", shared.NewDomainErrorf(shared.ErrUnsupportedCurrency.Code, "Currency %s is not supported", cur)
	}
	return cur, nil
}

// ResolveCountry normalizes a country code and checks it can be shipped to
func (c *Calculator) ResolveCountry(code string) (string, error) {
	country := normalizeCountryKey(code)
	if len(country) != 2 {
		return "", shared.NewDomainErrorf(shared.ErrUnsupportedCountry.Code, "Country %q is not supported", code)
	}
	if _, ok := c.card.Shipping[country]; ok {
		return country, nil
	}
	if _, ok := c.card.Shipping[AnyCountry]; ok {
		return country, nil
	}
	return "", shared.NewDomainErrorf(shared.ErrUnsupportedCountry.Code, "Shipping to %s is not supported", country)
}

// Quote prices lines for delivery to country in currency
func (c *Calculator) Quote(lines []Line, country string, currency valueobject.Currency) (*Quote, error) {
	if len(lines) == 0 {
		return nil, shared.ErrEmptyCart
	}
	cur, err := c.ResolveCurrency(string(currency))
	if err != nil {
		return nil, err
	}
	dest, err := c.ResolveCountry(country)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Currency: cur,
		Country:  dest,
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: valueobject.Zero(cur),
	}

	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, shared.NewDomainErrorf("INVALID_QUANTITY", "Quantity for SKU %s must be positive", l.SKUCode)
		}
		unit, _ := valueobject.NewMoney(l.UnitPrice, cur)
		total := unit.MultiplyByInt(l.Quantity).RoundBank()
		q.Lines = append(q.Lines, PricedLine{Line: l, LineTotal: total})
		q.Subtotal = q.Subtotal.MustAdd(total)
	}

	shipping, err := c.shippingFor(dest, cur, q.Subtotal)
	if err != nil {
		return nil, err
	}
	q.Shipping = shipping

	q.TaxRate = c.taxRateFor(dest)
	taxable := q.Subtotal
	if c.card.TaxShipping {
		taxable = taxable.MustAdd(q.Shipping)
	}
	q.Tax = taxable.Multiply(q.TaxRate).RoundBank()

	q.Total = q.Subtotal.MustAdd(q.Shipping).MustAdd(q.Tax)
	return q, nil
}

func (c *Calculator) shippingFor(country string, cur valueobject.Currency, subtotal valueobject.Money) (valueobject.Money, error) {
	if threshold, ok := c.card.FreeShippingOver[cur]; ok && !threshold.IsZero() && subtotal.Amount().GreaterThanOrEqual(threshold) {
		return valueobject.Zero(cur), nil
	}
	for _, key := range []string{country, AnyCountry} {
		rates, ok := c.card.Shipping[key]
		if !ok {
			continue
		}
		if amount, ok := rates[cur]; ok {
			m, _ := valueobject.NewMoney(amount, cur)
			return m.RoundBank(), nil
		}
	}
	return valueobject.Money{}, shared.NewDomainErrorf(shared.ErrPriceUnavailable.Code,
		"No shipping rate to %s in %s", country, cur)
}

func (c *Calculator) taxRateFor(country string) decimal.Decimal {
	if rate, ok := c.card.TaxRates[country]; ok {
		return rate
	}
	return c.card.DefaultTaxRate
}
