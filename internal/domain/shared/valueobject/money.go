package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	NGN Currency = "NGN"
	JPY Currency = "JPY"
)

// ErrCurrencyMismatch is returned when combining amounts in different currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return Currency(c), nil
}

// zeroDecimal lists currencies whose minor unit is the major unit, as card
// processors such as Stripe report them
var zeroDecimal = map[Currency]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true, JPY: true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true,
	"VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// MinorUnitExponent returns the number of decimal places used by the currency
func (c Currency) MinorUnitExponent() int32 {
	if zeroDecimal[c] {
		return 0
	}
	return 2
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is an immutable monetary amount in a single currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses a decimal string amount
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromMinor builds Money from an integer amount in minor units (cents)
func NewMoneyFromMinor(minor int64, currency Currency) Money {
	return Money{amount: decimal.New(minor, -currency.MinorUnitExponent()), currency: currency}
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MustAdd is Add for callers that already guarantee matching currencies
func (m Money) MustAdd(other Money) Money {
	sum, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return sum
}

// Multiply scales the amount by factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// MultiplyByInt scales the amount by an integer quantity
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// RoundBank rounds half-to-even at the currency's minor unit
func (m Money) RoundBank() Money {
	return Money{amount: m.amount.RoundBank(m.currency.MinorUnitExponent()), currency: m.currency}
}

// Minor returns the amount in integer minor units after banker's rounding
func (m Money) Minor() int64 {
	exp := m.currency.MinorUnitExponent()
	return m.amount.RoundBank(exp).Shift(exp).IntPart()
}

// Equals reports whether amounts and currencies match
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// StringFixed formats the amount with the currency's minor unit precision
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.MinorUnitExponent())
}

// String returns "<amount> <currency>"
func (m Money) String() string {
	return m.StringFixed() + " " + string(m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.StringFixed(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
