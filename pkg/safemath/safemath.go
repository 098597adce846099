// Package safemath holds the pure decimal-string helpers the funding stores
// share. Nothing in here reads state outside its arguments, and every
// function tolerates malformed input by treating it as zero.
package safemath

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// SanitizeAmount strips everything except digits and the first decimal point.
// An empty result becomes "0".
func SanitizeAmount(raw string) string {
	s := nonNumeric.ReplaceAllString(raw, "")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i+1] + strings.ReplaceAll(s[i+1:], ".", "")
	}
	if s == "" {
		return "0"
	}
	return s
}

// TrimTrailingZeros drops fractional trailing zeros and a dangling decimal point
func TrimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "0"
	}
	return s
}

// NormalizeAmount sanitizes user input and trims trailing zeros, the form
// amounts are stored and compared in
func NormalizeAmount(raw string) string {
	return TrimTrailingZeros(SanitizeAmount(raw))
}

func parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsZero reports whether s parses to zero. Unparseable input counts as zero.
func IsZero(s string) bool {
	return parse(s).IsZero()
}

// Compare returns -1, 0 or 1
func Compare(a, b string) int {
	return parse(a).Cmp(parse(b))
}

// GreaterThan reports a > b
func GreaterThan(a, b string) bool {
	return Compare(a, b) > 0
}

// LessThan reports a < b
func LessThan(a, b string) bool {
	return Compare(a, b) < 0
}

// Add returns a + b
func Add(a, b string) string {
	return parse(a).Add(parse(b)).String()
}

// Sub returns a - b
func Sub(a, b string) string {
	return parse(a).Sub(parse(b)).String()
}

// Mul returns a * b
func Mul(a, b string) string {
	return parse(a).Mul(parse(b)).String()
}

// Div returns a / b, or "0" when b is zero
func Div(a, b string) string {
	d := parse(b)
	if d.IsZero() {
		return "0"
	}
	return parse(a).Div(d).String()
}

// MulFloat multiplies a decimal string by a float, used for prices
func MulFloat(a string, f float64) string {
	return parse(a).Mul(decimal.NewFromFloat(f)).String()
}

// ToFloat converts to float64 for display-only fields such as trade value
func ToFloat(s string) float64 {
	f, _ := parse(s).Float64()
	return f
}

// ToRaw converts an amount in natural units to an integer string of raw
// units, truncating anything below the smallest unit
func ToRaw(amount string, decimals int) string {
	return parse(amount).Shift(int32(decimals)).Truncate(0).String()
}

// FromRaw converts raw units back to natural units
func FromRaw(raw string, decimals int) string {
	return parse(raw).Shift(-int32(decimals)).String()
}

// RawToBig parses a raw integer string. Fractions are truncated.
func RawToBig(raw string) *big.Int {
	return parse(raw).Truncate(0).BigInt()
}

// BigToRaw formats a big integer as a raw amount string
func BigToRaw(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

// GweiToWei converts a gwei price, possibly fractional, to integer wei
func GweiToWei(gwei string) string {
	return parse(gwei).Shift(9).Truncate(0).String()
}

// WeiToGwei converts wei to gwei
func WeiToGwei(wei string) string {
	return parse(wei).Shift(-9).String()
}

// FormatNumber rounds to the given number of decimals and groups thousands
func FormatNumber(s string, decimals int32) string {
	fixed := parse(s).Round(decimals).StringFixed(decimals)
	return AddCommas(fixed)
}

// AddCommas inserts thousands separators into the integer part
func AddCommas(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
