package gas

import "funding-quotes/pkg/types"

// Units is the static reference table of gas limits used whenever a live
// estimate is unavailable
type Units struct {
	BasicSwap      map[types.ChainID]string
	CrosschainSwap map[types.ChainID]string
	BasicApprove   string
	BasicTransfer  string
}

// DefaultUnits returns the reference table
func DefaultUnits() Units {
	return Units{
		BasicSwap: map[types.ChainID]string{
			types.ChainMainnet:   "200000",
			types.ChainOptimism:  "200000",
			types.ChainBSC:       "200000",
			types.ChainPolygon:   "200000",
			types.ChainBase:      "200000",
			types.ChainArbitrum:  "350000",
			types.ChainAvalanche: "200000",
			types.ChainZora:      "200000",
			types.ChainBlast:     "200000",
			types.ChainApechain:  "200000",
		},
		CrosschainSwap: map[types.ChainID]string{
			types.ChainMainnet:  "300000",
			types.ChainArbitrum: "450000",
		},
		BasicApprove:  "55000",
		BasicTransfer: "21000",
	}
}

// SwapLimit returns the reference limit for a swap on chainID. Cross-chain
// swaps fall back to the same-chain value when they have no entry.
func (u Units) SwapLimit(chainID types.ChainID, crosschain bool) string {
	if crosschain {
		if v, ok := u.CrosschainSwap[chainID]; ok {
			return v
		}
	}
	if v, ok := u.BasicSwap[chainID]; ok {
		return v
	}
	if v, ok := u.BasicSwap[types.ChainMainnet]; ok {
		return v
	}
	return "200000"
}
