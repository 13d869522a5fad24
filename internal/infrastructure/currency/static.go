// Package currency converts amounts using a fixed table of exchange rates.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

const (
	ratePlaces   = 8
	amountPlaces = 2
)

// StaticRates converts through a base currency. Each rate is the value of
// one unit of that currency expressed in the base currency.
type StaticRates struct {
	base  string
	rates map[string]decimal.Decimal
}

// Compile-time check that StaticRates implements CurrencyConverter
var _ matcher.CurrencyConverter = (*StaticRates)(nil)

// NewStaticRates builds a converter from decimal strings keyed by currency
// code. The base currency always has rate 1.
func NewStaticRates(base string, rates map[string]string) (*StaticRates, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}

	s := &StaticRates{
		base:  base,
		rates: map[string]decimal.Decimal{base: decimal.NewFromInt(1)},
	}
	for code, raw := range rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", code, raw)
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == base && !rate.Equal(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rate for base currency %s must be 1, got %s", code, raw)
		}
		s.rates[code] = rate
	}
	return s, nil
}

// Base returns the base currency code
func (s *StaticRates) Base() string {
	return s.base
}

// Rate returns how many units of to one unit of from buys
func (s *StaticRates) Rate(from, to string) (decimal.Decimal, bool) {
	fromRate, ok := s.rates[strings.ToUpper(from)]
	if !ok {
		return decimal.Zero, false
	}
	toRate, ok := s.rates[strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, false
	}
	return fromRate.DivRound(toRate, ratePlaces), true
}

// Convert returns nil when either currency has no configured rate
func (s *StaticRates) Convert(amount decimal.Decimal, from, to string) *matcher.Conversion {
	if strings.EqualFold(from, to) {
		return &matcher.Conversion{ConvertedAmount: amount, Rate: decimal.NewFromInt(1)}
	}

	rate, ok := s.Rate(from, to)
	if !ok {
		return nil
	}
	return &matcher.Conversion{
		ConvertedAmount: amount.Mul(rate).Round(amountPlaces),
		Rate:            rate,
	}
}
