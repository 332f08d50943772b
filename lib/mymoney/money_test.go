package mymoney

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestZeroDecimalCurrencies(t *testing.T) {
	assert.Len(t, ZeroDecimalCurrencies(), 16)
	for _, code := range []string{"MGA", "BIF", "CLP", "PYG", "DJF", "RWF", "GNF", "UGX", "JPY", "VND", "VUV", "XAF", "KMF", "KRW", "XOF", "XPF"} {
		assert.True(t, IsZeroDecimal(code), code)
	}
	assert.True(t, IsZeroDecimal("jpy"))
	assert.False(t, IsZeroDecimal("EUR"))
	assert.False(t, IsZeroDecimal(""))
}

func TestToMinorUnitsPassesZeroDecimalThrough(t *testing.T) {
	for _, code := range ZeroDecimalCurrencies() {
		for _, x := range []string{"0", "1", "1500", "12.5", "99999"} {
			amount := decimal.RequireFromString(x)
			assert.True(t, amount.Equal(ToMinorUnits(amount, code)), "%s %s", x, code)
		}
	}
}

func TestToMinorUnitsMultipliesByHundred(t *testing.T) {
	testCases := []struct {
		amount   string
		currency string
		expected int64
	}{
		{amount: "110", currency: "USD", expected: 11000},
		{amount: "132", currency: "eur", expected: 13200},
		{amount: "10.005", currency: "EUR", expected: 1001},
		{amount: "19.99", currency: "GBP", expected: 1999},
		{amount: "0.1", currency: "USD", expected: 10},
		{amount: "1500", currency: "JPY", expected: 1500},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %s", tc.amount, tc.currency), func(t *testing.T) {
			assert.Equal(t, tc.expected, MinorUnits(decimal.RequireFromString(tc.amount), tc.currency))
		})
	}
}

func TestMinorMajorRoundtrip(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "JPY", "KRW", "CHF"} {
		for m := int64(0); m < 2000; m += 37 {
			minor := decimal.NewFromInt(m)
			assert.True(t, minor.Equal(ToMinorUnits(ToMajorUnits(minor, code), code)), "%d %s", m, code)
		}
	}
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in       string
		ok       bool
		expected string
	}{
		{in: "12.50", ok: true, expected: "12.5"},
		{in: " 7 ", ok: true, expected: "7"},
		{in: "abc", ok: false},
		{in: "12abc", ok: false},
		{in: "", ok: false},
		{in: "-3", ok: true, expected: "-3"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			d, ok := ParseAmount(tc.in)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.expected, d.String())
			}
		})
	}

	_, ok := ParsePositiveAmount("-3")
	assert.False(t, ok)
	_, ok = ParsePositiveAmount("0")
	assert.False(t, ok)
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "$", CurrencySymbol("USD", "en"))
	assert.Equal(t, "€", CurrencySymbol("eur", "en"))
	assert.Equal(t, "XYZ1", CurrencySymbol("XYZ1", "en"))
}
