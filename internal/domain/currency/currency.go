// Package currency converts amounts using a fixed rate table.
package currency

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned when a currency code is not in the rate table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// UnsupportedCurrencyError names the currency code missing from the rate table.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency %q", e.Code)
}

// Unwrap allows errors.Is(err, ErrUnsupportedCurrency).
func (e *UnsupportedCurrencyError) Unwrap() error {
	return ErrUnsupportedCurrency
}

// Rates maps a currency code to its value in units per USD.
type Rates map[string]decimal.Decimal

// DefaultRates returns the built-in rate table.
func DefaultRates() Rates {
	return Rates{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.1"),
		"GBP": decimal.RequireFromString("1.3"),
	}
}

// Converter converts amounts between the currencies of its rate table.
type Converter struct {
	rates Rates
}

// NewConverter creates a Converter backed by a copy of rates.
func NewConverter(rates Rates) *Converter {
	c := &Converter{rates: make(Rates, len(rates))}
	for code, rate := range rates {
		c.rates[code] = rate
	}
	return c
}

var std = NewConverter(DefaultRates())

// Convert converts amount using the built-in rate table.
func Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return std.Convert(amount, from, to)
}

// Supported lists the codes of the built-in rate table.
func Supported() []string {
	return std.Supported()
}

// IsSupported reports whether code is in the built-in rate table.
func IsSupported(code string) bool {
	return std.IsSupported(code)
}

// Convert returns amount * rate[to] / rate[from]. Codes are matched exactly.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromRate, err := c.rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := c.rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(toRate).Div(fromRate), nil
}

// Supported returns the sorted list of currency codes.
func (c *Converter) Supported() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// IsSupported reports whether code has a usable rate.
func (c *Converter) IsSupported(code string) bool {
	_, err := c.rate(code)
	return err == nil
}

func (c *Converter) rate(code string) (decimal.Decimal, error) {
	r, ok := c.rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, &UnsupportedCurrencyError{Code: code}
	}
	return r, nil
}
