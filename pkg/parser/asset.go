package parser

import (
	"fmt"
	"regexp"
	"strings"

	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

// AssetRef points at a token on a chain
type AssetRef struct {
	ChainID types.ChainID
	Address string
}

var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// ParseAssetRef parses "<chain>:<address>". The chain is an id or a network
// name and the address may be "native".
// Examples:
//   - "8453:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
//   - "arbitrum:native"
//   - "solana:EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
func ParseAssetRef(ref string) (*AssetRef, error) {
	chain, address, ok := strings.Cut(strings.TrimSpace(ref), ":")
	if !ok || address == "" {
		return nil, fmt.Errorf("invalid asset '%s'. Expected '<chain>:<address>' (e.g. 'base:native')", ref)
	}

	chainID, err := types.ParseChainID(chain)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(address, "native") {
		return &AssetRef{ChainID: chainID, Address: chainID.NativeAssetAddress()}, nil
	}
	if err := types.ValidateAddress(address, chainID); err != nil {
		return nil, err
	}
	return &AssetRef{ChainID: chainID, Address: address}, nil
}

// ParseChainList parses a comma separated list of chains
func ParseChainList(list string) ([]types.ChainID, error) {
	var chains []types.ChainID
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := types.ParseChainID(part)
		if err != nil {
			return nil, err
		}
		chains = append(chains, id)
	}
	return chains, nil
}

// ParseAmount accepts user input such as "$1,200.50" and returns the
// normalized decimal amount
func ParseAmount(raw string) (string, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" || !amountPattern.MatchString(cleaned) || cleaned == "." {
		return "", fmt.Errorf("invalid amount '%s'", raw)
	}
	return safemath.NormalizeAmount(cleaned), nil
}
