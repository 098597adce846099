package funding

import (
	"context"

	"go.uber.org/zap"

	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// SwapRequirement says what a withdrawal needs beyond a plain transfer
type SwapRequirement string

const (
	SwapNone       SwapRequirement = "none"
	SwapSameChain  SwapRequirement = "sameChain"
	SwapCrossChain SwapRequirement = "crossChain"
)

// GetWithdrawalSwapRequirement classifies a withdrawal to targetChainID
// paying out in buyTokenAddress
func GetWithdrawalSwapRequirement(route *RouteConfig, targetChainID types.ChainID, buyTokenAddress string) SwapRequirement {
	if route.From.ChainID != targetChainID {
		return SwapCrossChain
	}

	sell := route.From.Token.Address
	if types.SameAddress(sell, buyTokenAddress, targetChainID) {
		return SwapNone
	}
	if types.IsNativeAsset(sell, targetChainID) && types.IsNativeAsset(buyTokenAddress, targetChainID) {
		return SwapNone
	}
	if !route.To.EnableSameChainSwap {
		return SwapNone
	}
	return SwapSameChain
}

// WithdrawalQuoteParams key the withdrawal quote store
type WithdrawalQuoteParams struct {
	Amount          string        `json:"amount"`
	Balance         string        `json:"balance"`
	BuyTokenAddress string        `json:"buyTokenAddress"`
	DestReceiver    string        `json:"destReceiver"`
	SourceAddress   string        `json:"sourceAddress"`
	TargetChainID   types.ChainID `json:"targetChainId"`
}

// WithdrawalQuoteStore fetches the quote that moves withdrawn funds to the
// selected chain and token
type WithdrawalQuoteStore = store.Query[WithdrawalQuoteParams, *types.QuoteResult]

// NewWithdrawalQuoteStore wires the quote to the amount, balance, buy token,
// wallet account and selected chain
func NewWithdrawalQuoteStore(cfg *WithdrawalConfig, env *Env, amount *AmountStore, withdrawal *WithdrawalStore, buyToken store.Readable[string]) (*WithdrawalQuoteStore, error) {
	if cfg == nil {
		return nil, ErrMissingRoute
	}
	if err := cfg.Route.validate(); err != nil {
		return nil, err
	}
	route := cfg.Route

	deps := append([]store.Source{amount, withdrawal, buyToken}, env.sources()...)
	if cfg.Balance != nil {
		deps = append(deps, cfg.Balance)
	}
	if route.From.Address != nil {
		deps = append(deps, route.From.Address)
	}

	return store.NewQuery(store.QueryConfig[WithdrawalQuoteParams, *types.QuoteResult]{
		Name: "withdrawal_quote",
		Fetcher: func(ctx context.Context, p WithdrawalQuoteParams) (*types.QuoteResult, error) {
			r := fetchWithdrawalQuote(ctx, route, env, p)
			recordOutcome("withdrawal", r)
			return r, nil
		},
		Params: func() WithdrawalQuoteParams {
			p := WithdrawalQuoteParams{
				Amount:          amount.Amount(),
				Balance:         "0",
				BuyTokenAddress: buyToken.Get(),
				DestReceiver:    env.account(),
				SourceAddress:   env.account(),
				TargetChainID:   withdrawal.SelectedChainID(),
			}
			if cfg.Balance != nil {
				p.Balance = cfg.Balance.Get()
			}
			if route.From.Address != nil {
				p.SourceAddress = route.From.Address.Get()
			}
			return p
		},
		Deps:      deps,
		CacheTime: quoteCacheTime,
		StaleTime: quoteStaleTime,
		Logger:    env.logger().With(zap.String("withdrawal", cfg.ID)),
	}), nil
}

// fetchWithdrawalQuote returns nil when no swap is needed or none can be
// attempted yet
func fetchWithdrawalQuote(ctx context.Context, route *RouteConfig, env *Env, p WithdrawalQuoteParams) *types.QuoteResult {
	if p.BuyTokenAddress == "" {
		return nil
	}
	requirement := GetWithdrawalSwapRequirement(route, p.TargetChainID, p.BuyTokenAddress)
	if requirement == SwapNone {
		return nil
	}

	amount := safemath.NormalizeAmount(p.Amount)
	if safemath.IsZero(amount) {
		return nil
	}
	if safemath.GreaterThan(amount, p.Balance) {
		return types.QuoteSentinel(types.QuoteStatusInsufficientBalance)
	}
	if p.DestReceiver == "" || p.SourceAddress == "" {
		return nil
	}

	params := types.QuoteParams{
		ChainID:                  route.From.ChainID,
		FromAddress:              p.SourceAddress,
		Receiver:                 p.DestReceiver,
		SellTokenAddress:         route.From.Token.Address,
		BuyTokenAddress:          p.BuyTokenAddress,
		SellAmount:               safemath.ToRaw(amount, route.From.Token.Decimals),
		Slippage:                 route.Quote.slippage(route.From.ChainID),
		FeePercentageBasisPoints: route.Quote.FeeBps,
		Currency:                 env.currency(),
	}
	if requirement == SwapCrossChain {
		params.ToChainID = p.TargetChainID
		params.Refuel = true
		params.Source = route.Quote.crosschainSource()
		return env.Quotes.FetchAndValidateCrosschainQuote(ctx, params)
	}
	return env.Quotes.FetchAndValidateSameChainQuote(ctx, params)
}
