package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRates_Convert(t *testing.T) {
	rates, err := NewStaticRates("usd", map[string]string{
		"EUR": "1.10",
		"gbp": "1.25",
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		amount   string
		from, to string
		want     string
		wantRate string
	}{
		{"foreign into base", "100", "EUR", "USD", "110", "1.1"},
		{"base into foreign", "110", "USD", "EUR", "100", "0.90909091"},
		{"cross through base", "-50", "GBP", "EUR", "-56.82", "1.13636364"},
		{"same currency", "12.34", "EUR", "eur", "12.34", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := rates.Convert(decimal.RequireFromString(tt.amount), tt.from, tt.to)

			require.NotNil(t, conv)
			assert.True(t, conv.ConvertedAmount.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", conv.ConvertedAmount, tt.want)
			assert.True(t, conv.Rate.Equal(decimal.RequireFromString(tt.wantRate)),
				"got rate %s, want %s", conv.Rate, tt.wantRate)
		})
	}
}

func TestStaticRates_UnknownCurrency(t *testing.T) {
	rates, err := NewStaticRates("USD", map[string]string{"EUR": "1.1"})
	require.NoError(t, err)

	assert.Nil(t, rates.Convert(decimal.NewFromInt(10), "JPY", "USD"))
	assert.Nil(t, rates.Convert(decimal.NewFromInt(10), "USD", "JPY"))
}

func TestNewStaticRates_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		rates map[string]string
	}{
		{"missing base", "", nil},
		{"not a number", "USD", map[string]string{"EUR": "abc"}},
		{"zero rate", "USD", map[string]string{"EUR": "0"}},
		{"negative rate", "USD", map[string]string{"EUR": "-1"}},
		{"base rate not one", "USD", map[string]string{"usd": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticRates(tt.base, tt.rates)
			assert.Error(t, err)
		})
	}
}
