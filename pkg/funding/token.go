package funding

import (
	"context"
	"errors"
	"strconv"
	"time"

	"funding-quotes/pkg/client"
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

const (
	tokenCacheTime           = time.Hour
	externalTokenStaleTime   = time.Minute
	withdrawalTokenStaleTime = 5 * time.Minute
)

// ExternalTokenParams key the native asset lookup
type ExternalTokenParams struct {
	ChainID  types.ChainID `json:"chainId"`
	Currency string        `json:"currency"`
}

// ExternalTokenStore resolves metadata and price of the native asset of the
// chain a deposit pays gas on
type ExternalTokenStore struct {
	*store.Query[ExternalTokenParams, *types.FormattedExternalAsset]
	chain *store.Derived[types.ChainID]
}

// NewExternalTokenStore follows the deposit's asset chain. A token the
// metadata service does not know resolves to nil.
func NewExternalTokenStore(env *Env, deposit *DepositStore) *ExternalTokenStore {
	chain := store.Derive(deposit.AssetChainID, []store.Source{deposit}, store.WithEquality(store.Strict[types.ChainID]))

	fetch := func(ctx context.Context, p ExternalTokenParams) (*types.ExternalToken, error) {
		token, err := env.Metadata.ExternalToken(ctx, p.ChainID.NativeAssetAddress(), p.ChainID, p.Currency)
		if errors.Is(err, client.ErrTokenNotFound) {
			return nil, nil
		}
		return token, err
	}

	q := store.NewQuery(store.QueryConfig[ExternalTokenParams, *types.FormattedExternalAsset]{
		Name: "external_token",
		Fetcher: store.Transformed(fetch, func(token *types.ExternalToken, p ExternalTokenParams) *types.FormattedExternalAsset {
			if token == nil {
				return nil
			}
			return FormatExternalAsset(token, p.ChainID.NativeAssetAddress(), p.ChainID, types.LookupCurrency(p.Currency))
		}),
		Params: func() ExternalTokenParams {
			return ExternalTokenParams{ChainID: chain.Get(), Currency: env.currency()}
		},
		Deps:      append([]store.Source{chain}, env.sources()...),
		CacheTime: tokenCacheTime,
		StaleTime: externalTokenStaleTime,
		Logger:    env.logger(),
	})

	return &ExternalTokenStore{Query: q, chain: chain}
}

// Close detaches the lookup and its chain projection
func (s *ExternalTokenStore) Close() {
	s.Query.Close()
	s.chain.Close()
}

// FormatExternalAsset prepares a metadata payload for display in currency
func FormatExternalAsset(token *types.ExternalToken, address string, chainID types.ChainID, currency types.NativeCurrency) *types.FormattedExternalAsset {
	f := &types.FormattedExternalAsset{
		ExternalToken: *token,
		Address:       address,
		ChainID:       chainID,
		IsNativeAsset: types.IsNativeAsset(address, chainID),
	}
	if token.Price != nil {
		amount := strconv.FormatFloat(token.Price.Value, 'f', -1, 64)
		f.NativePrice = types.NativeDisplay{
			Amount:  amount,
			Display: safemath.ToNativeDisplay(amount, currency, false),
		}
		f.Change = safemath.FormatPercentChange(token.Price.RelativeChange24h)
	}
	return f
}

// WithdrawalTokenParams key the withdrawal token lookup
type WithdrawalTokenParams struct {
	Address string        `json:"address"`
	ChainID types.ChainID `json:"chainId"`
}

// WithdrawalTokenStore resolves the per-chain deployments of the token a
// withdrawal pays out in
type WithdrawalTokenStore = store.Query[WithdrawalTokenParams, *types.WithdrawalTokenData]

// NewWithdrawalTokenStore looks up the route's destination token anchor
func NewWithdrawalTokenStore(env *Env, route *RouteConfig) *WithdrawalTokenStore {
	anchor := route.To.Token
	fetch := func(ctx context.Context, p WithdrawalTokenParams) (*types.ExternalToken, error) {
		token, err := env.Metadata.ExternalToken(ctx, p.Address, p.ChainID, env.currency())
		if errors.Is(err, client.ErrTokenNotFound) {
			return nil, nil
		}
		return token, err
	}

	return store.NewQuery(store.QueryConfig[WithdrawalTokenParams, *types.WithdrawalTokenData]{
		Name: "withdrawal_token",
		Fetcher: store.Transformed(fetch, func(token *types.ExternalToken, _ WithdrawalTokenParams) *types.WithdrawalTokenData {
			if token == nil {
				return nil
			}
			return &types.WithdrawalTokenData{
				IconURL:  token.IconURL,
				Networks: token.Networks,
				Symbol:   token.Symbol,
			}
		}),
		Params: func() WithdrawalTokenParams {
			return WithdrawalTokenParams{Address: anchor.Address, ChainID: anchor.ChainID}
		},
		CacheTime: tokenCacheTime,
		StaleTime: withdrawalTokenStaleTime,
		Logger:    env.logger(),
	})
}

// NewBuyTokenAddressStore resolves the address of the withdrawal token on
// the selected chain. Native deployments map to the native placeholder and
// an unsupported chain yields "".
func NewBuyTokenAddressStore(token *WithdrawalTokenStore, withdrawal *WithdrawalStore) *store.Derived[string] {
	return store.Derive(func() string {
		chainID := withdrawal.SelectedChainID()
		network := token.Get().Network(chainID)
		if network == nil {
			return ""
		}
		if types.IsNativeAsset(network.Address, chainID) {
			return types.NativeAssetPlaceholder
		}
		return network.Address
	}, []store.Source{token, withdrawal}, store.WithEquality(store.Strict[string]))
}
