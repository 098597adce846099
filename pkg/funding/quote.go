package funding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"funding-quotes/pkg/metrics"
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

const (
	quoteCacheTime = 30 * time.Second
	quoteStaleTime = 15 * time.Second
)

// QuoteAsset is the part of the selected asset a quote depends on
type QuoteAsset struct {
	UniqueID      string        `json:"uniqueId"`
	Address       string        `json:"address"`
	ChainID       types.ChainID `json:"chainId"`
	Decimals      int           `json:"decimals"`
	Balance       string        `json:"balance"`
	Price         float64       `json:"price"`
	IsNativeAsset bool          `json:"isNativeAsset"`
}

// DepositQuoteParams key the deposit quote store
type DepositQuoteParams struct {
	AccountAddress string      `json:"accountAddress"`
	Amount         string      `json:"amount"`
	Asset          *QuoteAsset `json:"asset"`
	Recipient      string      `json:"recipient"`
}

// DepositQuoteStore fetches the quote for selling the chosen asset into the
// deposit target
type DepositQuoteStore struct {
	*store.Query[DepositQuoteParams, *types.QuoteResult]
	asset *store.Derived[*QuoteAsset]
}

// NewDepositQuoteStore wires the quote to the amount, the selected asset,
// the wallet account and the configured recipient
func NewDepositQuoteStore(cfg *DepositConfig, env *Env, amount *AmountStore, deposit *DepositStore) *DepositQuoteStore {
	asset := store.Derive(func() *QuoteAsset {
		return quoteAsset(deposit.Asset())
	}, []store.Source{deposit}, store.WithEquality(store.Deep[*QuoteAsset]))

	deps := append([]store.Source{amount, asset}, env.sources()...)
	if cfg.To.Recipient != nil {
		deps = append(deps, cfg.To.Recipient)
	}

	log := env.logger().With(zap.String("deposit", cfg.ID))
	q := store.NewQuery(store.QueryConfig[DepositQuoteParams, *types.QuoteResult]{
		Name: "deposit_quote",
		Fetcher: func(ctx context.Context, p DepositQuoteParams) (*types.QuoteResult, error) {
			r := fetchDepositQuote(ctx, cfg, env, p)
			recordOutcome("deposit", r)
			return r, nil
		},
		Params: func() DepositQuoteParams {
			p := DepositQuoteParams{
				AccountAddress: env.account(),
				Amount:         amount.Amount(),
				Asset:          asset.Get(),
			}
			if cfg.To.Recipient != nil {
				p.Recipient = cfg.To.Recipient.Get()
			}
			return p
		},
		Deps:      deps,
		CacheTime: quoteCacheTime,
		StaleTime: quoteStaleTime,
		Logger:    log,
	})

	return &DepositQuoteStore{Query: q, asset: asset}
}

// Close detaches the quote and its asset projection
func (s *DepositQuoteStore) Close() {
	s.Query.Close()
	s.asset.Close()
}

func quoteAsset(a *types.Asset) *QuoteAsset {
	if a == nil {
		return nil
	}
	qa := &QuoteAsset{
		UniqueID:      a.UniqueID,
		Address:       a.Address,
		ChainID:       a.ChainID,
		Decimals:      a.Decimals,
		Balance:       a.Balance,
		IsNativeAsset: a.IsNativeAsset,
	}
	if a.Price != nil {
		qa.Price = a.Price.Value
	}
	if qa.Decimals <= 0 {
		qa.Decimals = defaultDecimals
	}
	return qa
}

// fetchDepositQuote returns nil when no quote can be attempted yet
func fetchDepositQuote(ctx context.Context, cfg *DepositConfig, env *Env, p DepositQuoteParams) *types.QuoteResult {
	if p.Asset == nil {
		return nil
	}
	if cfg.To.Recipient != nil && p.Recipient == "" {
		return nil
	}

	amount := safemath.NormalizeAmount(p.Amount)
	if safemath.IsZero(amount) {
		return nil
	}
	if safemath.GreaterThan(amount, p.Asset.Balance) {
		return types.QuoteSentinel(types.QuoteStatusInsufficientBalance)
	}

	receiver := p.Recipient
	if receiver == "" {
		receiver = p.AccountAddress
	}
	sellAmount := safemath.ToRaw(amount, p.Asset.Decimals)
	sameChain := p.Asset.ChainID == cfg.To.ChainID

	if cfg.DirectTransferEnabled && sameChain && types.SameAddress(p.Asset.Address, cfg.To.Token.Address, cfg.To.ChainID) {
		return types.QuoteFound(transferQuote(cfg, p, amount, sellAmount, receiver))
	}

	params := types.QuoteParams{
		ChainID:                  p.Asset.ChainID,
		FromAddress:              p.AccountAddress,
		Receiver:                 receiver,
		SellTokenAddress:         p.Asset.Address,
		BuyTokenAddress:          cfg.To.Token.Address,
		SellAmount:               sellAmount,
		Slippage:                 cfg.Quote.slippage(p.Asset.ChainID),
		FeePercentageBasisPoints: cfg.Quote.FeeBps,
		Currency:                 env.currency(),
	}
	if !sameChain {
		params.ToChainID = cfg.To.ChainID
		params.Refuel = true
		params.Source = cfg.Quote.crosschainSource()
		return env.Quotes.FetchAndValidateCrosschainQuote(ctx, params)
	}
	return env.Quotes.FetchAndValidateSameChainQuote(ctx, params)
}

// transferQuote stands in for a swap when the asset already is the target
func transferQuote(cfg *DepositConfig, p DepositQuoteParams, amount, sellAmount, receiver string) *types.Quote {
	return &types.Quote{
		ChainID:            p.Asset.ChainID,
		ToChainID:          cfg.To.ChainID,
		From:               p.AccountAddress,
		To:                 receiver,
		SellTokenAddress:   p.Asset.Address,
		BuyTokenAddress:    cfg.To.Token.Address,
		SellAmount:         sellAmount,
		BuyAmount:          sellAmount,
		BuyAmountMinusFees: sellAmount,
		Fee:                "0",
		TradeAmountUSD:     safemath.ToFloat(safemath.MulFloat(amount, p.Asset.Price)),
		Recipient:          receiver,
		Source:             types.SourceTransfer,
	}
}

func recordOutcome(flow string, r *types.QuoteResult) {
	status := "none"
	if r != nil {
		status = string(r.Status)
	}
	metrics.QuoteOutcomes.WithLabelValues(flow, status).Inc()
}
