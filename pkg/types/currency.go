package types

import "strings"

// CurrencyAlignment places the symbol before or after the amount
type CurrencyAlignment string

const (
	AlignLeft  CurrencyAlignment = "left"
	AlignRight CurrencyAlignment = "right"
)

// NativeCurrency describes a display currency
type NativeCurrency struct {
	Key       string
	Symbol    string
	Decimals  int32
	Alignment CurrencyAlignment
}

var nativeCurrencies = map[string]NativeCurrency{
	"USD": {"USD", "$", 2, AlignLeft},
	"EUR": {"EUR", "€", 2, AlignLeft},
	"GBP": {"GBP", "£", 2, AlignLeft},
	"AUD": {"AUD", "A$", 2, AlignLeft},
	"CAD": {"CAD", "CA$", 2, AlignLeft},
	"CNY": {"CNY", "¥", 2, AlignLeft},
	"INR": {"INR", "₹", 2, AlignLeft},
	"JPY": {"JPY", "¥", 0, AlignLeft},
	"KRW": {"KRW", "₩", 0, AlignLeft},
	"RUB": {"RUB", "₽", 2, AlignRight},
	"TRY": {"TRY", "₺", 2, AlignLeft},
	"ZAR": {"ZAR", "R", 2, AlignLeft},
	"ETH": {"ETH", "Ξ", 4, AlignLeft},
}

// LookupCurrency returns the display currency for key, falling back to USD
func LookupCurrency(key string) NativeCurrency {
	if c, ok := nativeCurrencies[strings.ToUpper(key)]; ok {
		return c
	}
	return nativeCurrencies["USD"]
}
