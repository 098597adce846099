package funding

import "funding-quotes/pkg/types"

// Strategy is how a deposit quote gets executed
type Strategy string

const (
	StrategyDirectTransfer Strategy = "directTransfer"
	StrategySwap           Strategy = "swap"
	StrategyCrosschainSwap Strategy = "crosschainSwap"
)

// DetermineStrategy picks the execution path for q, or "" without a quote
func DetermineStrategy(cfg *DepositConfig, q *types.Quote) Strategy {
	if q == nil {
		return ""
	}
	if q.Source == types.SourceTransfer {
		return StrategyDirectTransfer
	}
	if q.IsCrosschain() {
		return StrategyCrosschainSwap
	}
	if cfg.DirectTransferEnabled && q.ChainID == cfg.To.ChainID &&
		types.SameAddress(q.SellTokenAddress, cfg.To.Token.Address, q.ChainID) {
		return StrategyDirectTransfer
	}
	return StrategySwap
}

// CrosschainQuoteTargetsRecipient reports whether a cross-chain quote pays
// out to recipient. Same-chain quotes always pass.
func CrosschainQuoteTargetsRecipient(q *types.Quote, recipient string) bool {
	if q == nil {
		return false
	}
	if !q.IsCrosschain() || recipient == "" {
		return true
	}
	target := q.Recipient
	if target == "" {
		target = q.To
	}
	return types.SameAddress(target, recipient, q.ToChainID)
}
