package safemath

import (
	"strings"

	"github.com/shopspring/decimal"

	"funding-quotes/pkg/types"
)

// ToNativeDisplay formats an amount in the given display currency. With
// useThreshold, positive amounts too small to show become "< $0.01".
func ToNativeDisplay(amount string, currency types.NativeCurrency, useThreshold bool) string {
	value := parse(amount)

	if useThreshold && value.IsPositive() {
		threshold := decimal.New(1, -currency.Decimals)
		if value.LessThan(threshold) {
			return "< " + withSymbol(threshold.StringFixed(currency.Decimals), currency)
		}
	}

	return withSymbol(FormatNumber(value.String(), currency.Decimals), currency)
}

func withSymbol(amount string, currency types.NativeCurrency) string {
	if currency.Alignment == types.AlignRight {
		return amount + " " + currency.Symbol
	}
	if strings.HasPrefix(amount, "-") {
		return "-" + currency.Symbol + strings.TrimPrefix(amount, "-")
	}
	return currency.Symbol + amount
}

// FormatPercentChange renders a 24h change like "+1.23%"
func FormatPercentChange(change float64) string {
	d := decimal.NewFromFloat(change).Round(2)
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}
