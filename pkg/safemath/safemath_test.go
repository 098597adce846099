package safemath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"funding-quotes/pkg/types"
)

func TestSanitizeAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$100.00", "100.00"},
		{"", "0"},
		{"1,234.5", "1234.5"},
		{"abc", "0"},
		{"1.2.3", "1.23"},
		{" 0.05 ETH", "0.05"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeAmount(tt.in), tt.in)
	}
}

func TestSanitizeAmountIdempotent(t *testing.T) {
	inputs := []string{"", "$100.00", "1..2", "..", "12abc.3.4", "0.000", "-5", "1e18", "  "}
	for _, in := range inputs {
		once := SanitizeAmount(in)
		assert.Equal(t, once, SanitizeAmount(once), in)
	}
}

func TestNormalizeAmount(t *testing.T) {
	assert.Equal(t, "100", NormalizeAmount("$100.00"))
	assert.Equal(t, "0.5", NormalizeAmount("0.50"))
	assert.Equal(t, "0", NormalizeAmount("0.000"))
	assert.Equal(t, "120", NormalizeAmount("120"))
	assert.Equal(t, "0", NormalizeAmount(""))
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, "3.5", Add("1.25", "2.25"))
	assert.Equal(t, "-1", Sub("1", "2"))
	assert.Equal(t, "12.5", Mul("5", "2.5"))
	assert.Equal(t, "0", Div("5", "0"))
	assert.Equal(t, "2.5", Div("5", "2"))
	assert.True(t, GreaterThan("15", "10"))
	assert.False(t, GreaterThan("10", "10"))
	assert.True(t, LessThan("0.1", "1"))
	assert.True(t, IsZero("0.000"))
	assert.True(t, IsZero("garbage"))
}

func TestRawConversions(t *testing.T) {
	assert.Equal(t, "5000000000000000000", ToRaw("5", 18))
	assert.Equal(t, "1500000", ToRaw("1.5", 6))
	assert.Equal(t, "1", ToRaw("1.9", 0))
	assert.Equal(t, "5", FromRaw("5000000000000000000", 18))
	assert.Equal(t, "0.00042", FromRaw("420000000000000", 18))
	assert.Equal(t, "20000000000", GweiToWei("20"))
	assert.Equal(t, "12500000000", GweiToWei("12.5"))
	assert.Equal(t, "420000", WeiToGwei("420000000000000"))
	assert.Equal(t, int64(1000), RawToBig("1000").Int64())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatNumber("1234567.891", 2))
	assert.Equal(t, "420,000.00", FormatNumber("420000", 2))
	assert.Equal(t, "12.00", FormatNumber("12", 2))

	usd := types.LookupCurrency("usd")
	assert.Equal(t, "$1,200.50", ToNativeDisplay("1200.5", usd, false))
	assert.Equal(t, "< $0.01", ToNativeDisplay("0.001", usd, true))
	assert.Equal(t, "$0.00", ToNativeDisplay("0.001", usd, false))
	assert.Equal(t, "1.50 ₽", ToNativeDisplay("1.5", types.LookupCurrency("RUB"), false))

	assert.Equal(t, "+1.23%", FormatPercentChange(1.234))
	assert.Equal(t, "-0.50%", FormatPercentChange(-0.5))
}
