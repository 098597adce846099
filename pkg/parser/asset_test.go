package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funding-quotes/pkg/types"
)

func TestParseAssetRef(t *testing.T) {
	ref, err := ParseAssetRef("8453:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	require.NoError(t, err)
	assert.Equal(t, types.ChainBase, ref.ChainID)
	assert.Equal(t, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", ref.Address)

	ref, err = ParseAssetRef("polygon:native")
	require.NoError(t, err)
	assert.Equal(t, types.ChainPolygon, ref.ChainID)
	assert.Equal(t, "0x0000000000000000000000000000000000001010", ref.Address)

	ref, err = ParseAssetRef("solana:EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, types.ChainSolana, ref.ChainID)

	for _, bad := range []string{"", "base", "base:", "nowhere:native", "base:0x123", "solana:0xdeadbeef"} {
		_, err := ParseAssetRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseChainList(t *testing.T) {
	chains, err := ParseChainList("base, 42161,,eth")
	require.NoError(t, err)
	assert.Equal(t, []types.ChainID{types.ChainBase, types.ChainArbitrum, types.ChainMainnet}, chains)

	chains, err = ParseChainList("")
	require.NoError(t, err)
	assert.Empty(t, chains)

	_, err = ParseChainList("base,atlantis")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"$1,200.50": "1200.5",
		"100.00":    "100",
		".5":        ".5",
		"0":         "0",
	}
	for in, want := range tests {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "1.2.3", ".", "-5"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}
