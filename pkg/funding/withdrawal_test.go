package funding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"funding-quotes/pkg/kv"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

func baseUSDCRoute() *RouteConfig {
	return &RouteConfig{
		From: RouteFrom{
			ChainID: types.ChainBase,
			Token:   Token{Address: usdcBase, Decimals: 6, Symbol: "USDC"},
		},
		To: RouteTo{
			Token:         TokenAnchor{Address: usdcMain, ChainID: types.ChainMainnet, Symbol: "USDC"},
			DefaultChain:  types.ChainBase,
			AllowedChains: []types.ChainID{types.ChainBase, types.ChainArbitrum, types.ChainMainnet},
		},
	}
}

func usdcNetworks() *types.ExternalToken {
	return &types.ExternalToken{
		Symbol:   "USDC",
		Decimals: 6,
		IconURL:  "https://icons/usdc.png",
		Networks: map[string]*types.TokenNetwork{
			"1":     {Address: usdcMain, Decimals: 6},
			"8453":  {Address: usdcBase, Decimals: 6},
			"42161": {Address: usdcArb, Decimals: 6},
		},
	}
}

func TestGetWithdrawalSwapRequirement(t *testing.T) {
	route := baseUSDCRoute()
	weth := "0x4200000000000000000000000000000000000006"

	assert.Equal(t, SwapCrossChain, GetWithdrawalSwapRequirement(route, types.ChainArbitrum, usdcArb))
	assert.Equal(t, SwapNone, GetWithdrawalSwapRequirement(route, types.ChainBase, usdcBase))
	assert.Equal(t, SwapNone, GetWithdrawalSwapRequirement(route, types.ChainBase, weth), "same-chain swaps are off")

	route.To.EnableSameChainSwap = true
	assert.Equal(t, SwapSameChain, GetWithdrawalSwapRequirement(route, types.ChainBase, weth))

	native := baseUSDCRoute()
	native.From.Token = Token{Address: types.ZeroAddress, Decimals: 18, Symbol: "ETH"}
	native.To.EnableSameChainSwap = true
	assert.Equal(t, SwapNone, GetWithdrawalSwapRequirement(native, types.ChainBase, types.NativeAssetPlaceholder))
}

func TestWithdrawalStoreChainSelection(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv()
	cfg := &WithdrawalConfig{ID: "hl", Route: baseUSDCRoute()}
	cfg.Route.To.AllowedChains = []types.ChainID{types.ChainBase, types.ChainArbitrum}

	s, err := NewWithdrawalStore(ctx, cfg, te.Env)
	require.NoError(t, err)
	assert.Equal(t, types.ChainBase, s.SelectedChainID())

	assert.False(t, s.SetSelectedChainID(types.ChainPolygon))
	assert.Equal(t, types.ChainBase, s.SelectedChainID())
	assert.True(t, s.SetSelectedChainID(types.ChainArbitrum))
	assert.False(t, s.SetSelectedChainID(types.ChainArbitrum))

	s.SetIsSubmitting(true)
	assert.True(t, s.IsSubmitting())
	assert.NoError(t, s.Close(ctx))

	_, err = NewWithdrawalStore(ctx, &WithdrawalConfig{ID: "none"}, te.Env)
	assert.ErrorIs(t, err, ErrMissingRoute)
}

func TestWithdrawalStorePersistsChain(t *testing.T) {
	ctx := context.Background()
	storage, err := kv.NewFileStorage(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	te := newTestEnv()
	te.Storage = storage
	cfg := &WithdrawalConfig{ID: "hl", Route: baseUSDCRoute()}
	cfg.Route.To.PersistSelectedChain = true

	s, err := NewWithdrawalStore(ctx, cfg, te.Env)
	require.NoError(t, err)
	require.True(t, s.SetSelectedChainID(types.ChainArbitrum))
	require.True(t, s.SetSelectedChainID(types.ChainMainnet))
	require.NoError(t, s.Close(ctx))

	restored, err := NewWithdrawalStore(ctx, cfg, te.Env)
	require.NoError(t, err)
	assert.Equal(t, types.ChainMainnet, restored.SelectedChainID())
	require.NoError(t, restored.Close(ctx))

	cfg.Route.To.AllowedChains = []types.ChainID{types.ChainBase, types.ChainArbitrum}
	fallback, err := NewWithdrawalStore(ctx, cfg, te.Env)
	require.NoError(t, err)
	assert.Equal(t, types.ChainBase, fallback.SelectedChainID(), "persisted chain no longer allowed")
	require.NoError(t, fallback.Close(ctx))
}

func TestWithdrawalFlowQuotes(t *testing.T) {
	ctx := awaitCtx(t)
	te := newTestEnv()
	te.metadata.On("ExternalToken", mock.Anything, usdcMain, types.ChainMainnet, "USD").Return(usdcNetworks(), nil)
	te.quotes.On("FetchAndValidateCrosschainQuote", mock.Anything, mock.MatchedBy(func(p types.QuoteParams) bool {
		return p.ChainID == types.ChainBase &&
			p.ToChainID == types.ChainArbitrum &&
			p.BuyTokenAddress == usdcArb &&
			p.SellAmount == "25000000" &&
			p.FromAddress == account &&
			p.Receiver == account &&
			p.Refuel
	})).Return(types.QuoteFound(&types.Quote{
		ChainID:    types.ChainBase,
		ToChainID:  types.ChainArbitrum,
		SellAmount: "25000000",
		BuyAmount:  "24900000",
	})).Once()

	balance := store.New("100")
	cfg := &WithdrawalConfig{ID: "hl", Balance: balance, Route: baseUSDCRoute()}
	flow, err := NewWithdrawalFlow(ctx, cfg, te.Env)
	require.NoError(t, err)
	defer flow.Close(ctx)

	token, err := flow.Token.Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, usdcBase, flow.BuyToken.Get())

	flow.Amount.SetAmount("25")
	r, err := flow.Quote.Await(ctx)
	require.NoError(t, err)
	assert.Nil(t, r, "withdrawing USDC on Base needs no swap")
	assert.Equal(t, SwapNone, flow.SwapRequirement())

	require.True(t, flow.Withdrawal.SetSelectedChainID(types.ChainArbitrum))
	assert.Equal(t, usdcArb, flow.BuyToken.Get())
	assert.Equal(t, SwapCrossChain, flow.SwapRequirement())

	r, err = flow.Quote.Await(ctx)
	require.NoError(t, err)
	require.True(t, r.IsValid())
	assert.Equal(t, "24900000", r.Quote.BuyAmount)

	flow.Amount.SetAmount("250")
	r, err = flow.Quote.Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, types.QuoteStatusInsufficientBalance, r.Status)

	te.quotes.AssertExpectations(t)
}

func TestBuyTokenAddressUnsupportedChain(t *testing.T) {
	ctx := awaitCtx(t)
	te := newTestEnv()
	te.metadata.On("ExternalToken", mock.Anything, usdcMain, types.ChainMainnet, "USD").Return(usdcNetworks(), nil)

	cfg := &WithdrawalConfig{ID: "hl", Route: baseUSDCRoute()}
	cfg.Route.To.AllowedChains = nil
	flow, err := NewWithdrawalFlow(ctx, cfg, te.Env)
	require.NoError(t, err)
	defer flow.Close(ctx)

	_, err = flow.Token.Await(ctx)
	require.NoError(t, err)

	require.True(t, flow.Withdrawal.SetSelectedChainID(types.ChainZora))
	assert.Equal(t, "", flow.BuyToken.Get())
	assert.Equal(t, SwapNone, flow.SwapRequirement())

	_, err = NewWithdrawalFlow(ctx, &WithdrawalConfig{ID: "x"}, te.Env)
	assert.ErrorIs(t, err, ErrMissingRoute)
}

func TestWithdrawalRejectsIncompleteRoute(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv()

	tests := []struct {
		name   string
		mutate func(*RouteConfig)
	}{
		{"zero decimals", func(r *RouteConfig) { r.From.Token.Decimals = 0 }},
		{"negative decimals", func(r *RouteConfig) { r.From.Token.Decimals = -6 }},
		{"no token address", func(r *RouteConfig) { r.From.Token.Address = "" }},
		{"no source chain", func(r *RouteConfig) { r.From.ChainID = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := baseUSDCRoute()
			tt.mutate(route)
			cfg := &WithdrawalConfig{ID: "hl", Balance: store.New("100"), Route: route}

			_, err := NewWithdrawalStore(ctx, cfg, te.Env)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			_, err = NewWithdrawalFlow(ctx, cfg, te.Env)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	valid := &WithdrawalConfig{ID: "hl", Route: baseUSDCRoute()}
	withdrawal, err := NewWithdrawalStore(ctx, valid, te.Env)
	require.NoError(t, err)

	invalid := &WithdrawalConfig{ID: "hl", Route: baseUSDCRoute()}
	invalid.Route.From.Token.Decimals = 0
	_, err = NewWithdrawalQuoteStore(invalid, te.Env, NewAmountStore(), withdrawal, store.New(usdcArb))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	te.quotes.AssertNotCalled(t, "FetchAndValidateCrosschainQuote", mock.Anything, mock.Anything)
}
