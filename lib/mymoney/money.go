// Package mymoney converts amounts between major and minor units the way the payment provider expects them.
package mymoney

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "USD"

// zeroDecimalCurrencies have no minor unit: amounts are handed to the provider as-is
var zeroDecimalCurrencies = map[string]bool{
	"MGA": true,
	"BIF": true,
	"CLP": true,
	"PYG": true,
	"DJF": true,
	"RWF": true,
	"GNF": true,
	"UGX": true,
	"JPY": true,
	"VND": true,
	"VUV": true,
	"XAF": true,
	"KMF": true,
	"KRW": true,
	"XOF": true,
	"XPF": true,
}

var hundred = decimal.NewFromInt(100)

func ZeroDecimalCurrencies() []string {
	codes := make([]string, 0, len(zeroDecimalCurrencies))
	for code := range zeroDecimalCurrencies {
		codes = append(codes, code)
	}
	return codes
}

func IsZeroDecimal(currencyCode string) bool {
	return zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currencyCode))]
}

func ToMinorUnits(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	if IsZeroDecimal(currencyCode) {
		return amount
	}
	return amount.Mul(hundred).Round(0)
}

func ToMajorUnits(minor decimal.Decimal, currencyCode string) decimal.Decimal {
	if IsZeroDecimal(currencyCode) {
		return minor
	}
	return minor.Div(hundred)
}

// MinorUnits is ToMinorUnits as the integer the provider api takes
func MinorUnits(amount decimal.Decimal, currencyCode string) int64 {
	return ToMinorUnits(amount, currencyCode).Round(0).IntPart()
}

// ParseAmount reads a user typed amount. Anything that is not a plain number is reported as not-ok
// so callers can fall back to their configured default.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParsePositiveAmount is ParseAmount that also rejects zero and negative values
func ParsePositiveAmount(s string) (decimal.Decimal, bool) {
	d, ok := ParseAmount(s)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// CurrencySymbol returns the symbol used to display the currency, or the iso-code itself when unknown.
func CurrencySymbol(currencyCode string, lang string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit))
}
