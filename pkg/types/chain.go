package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// ChainID identifies a network the funding flows can source from or settle on
type ChainID int64

const (
	ChainMainnet   ChainID = 1
	ChainOptimism  ChainID = 10
	ChainBSC       ChainID = 56
	ChainPolygon   ChainID = 137
	ChainBase      ChainID = 8453
	ChainApechain  ChainID = 33139
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
	ChainBlast     ChainID = 81457
	ChainZora      ChainID = 7777777
	ChainSolana    ChainID = 792703809
)

// NativeAssetPlaceholder is the address aggregators use for a chain's native asset
const NativeAssetPlaceholder = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// ZeroAddress is used by some token lists as the native asset address
const ZeroAddress = "0x0000000000000000000000000000000000000000"

type chainInfo struct {
	name         string
	nativeSymbol string
	nativeAsset  string
}

var chains = map[ChainID]chainInfo{
	ChainMainnet:   {"mainnet", "ETH", NativeAssetPlaceholder},
	ChainOptimism:  {"optimism", "ETH", NativeAssetPlaceholder},
	ChainBSC:       {"bsc", "BNB", NativeAssetPlaceholder},
	ChainPolygon:   {"polygon", "POL", "0x0000000000000000000000000000000000001010"},
	ChainBase:      {"base", "ETH", NativeAssetPlaceholder},
	ChainApechain:  {"apechain", "APE", NativeAssetPlaceholder},
	ChainArbitrum:  {"arbitrum", "ETH", NativeAssetPlaceholder},
	ChainAvalanche: {"avalanche", "AVAX", NativeAssetPlaceholder},
	ChainBlast:     {"blast", "ETH", NativeAssetPlaceholder},
	ChainZora:      {"zora", "ETH", NativeAssetPlaceholder},
	ChainSolana:    {"solana", "SOL", "So11111111111111111111111111111111111111112"},
}

// Name returns the short network name, or the decimal id for unknown chains
func (c ChainID) Name() string {
	if info, ok := chains[c]; ok {
		return info.name
	}
	return strconv.FormatInt(int64(c), 10)
}

// String implements fmt.Stringer
func (c ChainID) String() string {
	return c.Name()
}

// NativeSymbol returns the symbol of the chain's gas token
func (c ChainID) NativeSymbol() string {
	if info, ok := chains[c]; ok {
		return info.nativeSymbol
	}
	return "ETH"
}

// NativeAssetAddress returns the address the metadata service uses for the chain's native asset
func (c ChainID) NativeAssetAddress() string {
	if info, ok := chains[c]; ok {
		return info.nativeAsset
	}
	return NativeAssetPlaceholder
}

// IsKnown reports whether the chain is in the supported networks table
func (c ChainID) IsKnown() bool {
	_, ok := chains[c]
	return ok
}

// IsEVM reports whether addresses on the chain are 20-byte hex addresses
func (c ChainID) IsEVM() bool {
	return c != ChainSolana
}

// ParseChainID accepts a decimal chain id or a network name
func ParseChainID(s string) (ChainID, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("chain is required")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ChainID(n), nil
	}

	if s == "ethereum" || s == "eth" {
		return ChainMainnet, nil
	}
	for id, info := range chains {
		if info.name == s {
			return id, nil
		}
	}

	return 0, fmt.Errorf("unknown chain '%s'", s)
}

// IsNativeAsset reports whether address is the native asset of chainID
func IsNativeAsset(address string, chainID ChainID) bool {
	if address == "" {
		return false
	}
	if strings.EqualFold(address, NativeAssetPlaceholder) || strings.EqualFold(address, ZeroAddress) {
		return chainID.IsEVM()
	}
	return strings.EqualFold(address, chainID.NativeAssetAddress())
}

// SameAddress compares two addresses the way the chain does
func SameAddress(a, b string, chainID ChainID) bool {
	if chainID.IsEVM() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// ValidateAddress checks that address is well formed for chainID
func ValidateAddress(address string, chainID ChainID) error {
	if chainID == ChainSolana {
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("invalid Solana address: %w", err)
		}
		return nil
	}

	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid EVM address: %s", address)
	}
	return nil
}

// DefaultSlippage returns the slippage percentage used when a flow does not override it
func DefaultSlippage(chainID ChainID) float64 {
	if chainID == ChainMainnet {
		return 1
	}
	return 2
}
