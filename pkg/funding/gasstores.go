package funding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"funding-quotes/pkg/gas"
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

const (
	meteorologyCacheTime = 36 * time.Second
	meteorologyStaleTime = 12 * time.Second
	gasLimitCacheTime    = time.Minute
	gasLimitStaleTime    = 30 * time.Second
)

// GasLimitParams key the gas limit store. QuoteKey changes only when the
// quote goes from invalid to valid, so payload churn does not re-estimate.
type GasLimitParams struct {
	AssetUniqueID string `json:"assetToSellUniqueId"`
	QuoteKey      uint64 `json:"quoteKey"`
}

// DepositGasStores estimate what executing the deposit quote costs
type DepositGasStores struct {
	QuoteKey     *store.Derived[uint64]
	Meteorology  *store.Query[types.ChainID, types.GasSuggestions]
	GasLimit     *store.Query[GasLimitParams, string]
	GasSettings  *store.Derived[*types.GasSettings]
	EstimatedFee *store.Derived[string]
	MaxSwappable *store.Derived[string]
}

// NewDepositGasStores builds the gas pipeline on top of the quote and the
// native asset price
func NewDepositGasStores(env *Env, deposit *DepositStore, quote *DepositQuoteStore, native *ExternalTokenStore) *DepositGasStores {
	log := env.logger()
	s := &DepositGasStores{}

	s.QuoteKey = newQuoteKeyStore(quote)

	s.Meteorology = store.NewQuery(store.QueryConfig[types.ChainID, types.GasSuggestions]{
		Name: "meteorology",
		Fetcher: store.Transformed(env.Oracle.GetData, func(resp *types.MeteorologyResponse, _ types.ChainID) types.GasSuggestions {
			return gas.SelectSuggestions(resp)
		}),
		Params:           deposit.AssetChainID,
		Deps:             []store.Source{deposit},
		CacheTime:        meteorologyCacheTime,
		StaleTime:        meteorologyStaleTime,
		KeepPreviousData: true,
		AutoRefetch:      true,
		MaxRetries:       store.DefaultMaxRetries,
		Logger:           log,
	})

	s.GasLimit = store.NewQuery(store.QueryConfig[GasLimitParams, string]{
		Name: "gas_limit",
		Fetcher: func(ctx context.Context, _ GasLimitParams) (string, error) {
			return estimateGasLimit(ctx, env, deposit, quote, log)
		},
		Params: func() GasLimitParams {
			p := GasLimitParams{QuoteKey: s.QuoteKey.Get()}
			if a := deposit.Asset(); a != nil {
				p.AssetUniqueID = a.UniqueID
			}
			return p
		},
		Enabled:   func() bool { return s.QuoteKey.Get() != 0 },
		Deps:      []store.Source{s.QuoteKey, deposit},
		CacheTime: gasLimitCacheTime,
		StaleTime: gasLimitStaleTime,
		Logger:    log,
	})

	s.GasSettings = store.Derive(func() *types.GasSettings {
		return s.Meteorology.Get()[deposit.GasSpeed()]
	}, []store.Source{s.Meteorology, deposit}, store.WithEquality(store.Deep[*types.GasSettings]))

	s.EstimatedFee = store.Derive(func() string {
		var price string
		if n := native.Get(); n != nil {
			price = n.NativePrice.Amount
		}
		return ComputeEstimatedFee(s.GasSettings.Get(), s.GasLimit.Get(), price, types.LookupCurrency(env.currency()))
	}, append([]store.Source{s.GasSettings, s.GasLimit, native}, env.sources()...), store.WithEquality(store.Strict[string]))

	s.MaxSwappable = store.Derive(func() string {
		return ComputeMaxSwappableAmount(deposit.Asset(), s.GasSettings.Get(), s.GasLimit.Get())
	}, []store.Source{deposit, s.GasSettings, s.GasLimit}, store.WithEquality(store.Strict[string]))

	return s
}

// Close releases the stores in reverse order of construction
func (s *DepositGasStores) Close() {
	s.MaxSwappable.Close()
	s.EstimatedFee.Close()
	s.GasSettings.Close()
	s.GasLimit.Close()
	s.Meteorology.Close()
	s.QuoteKey.Close()
}

// newQuoteKeyStore issues a new non-zero key each time the quote becomes
// valid after being invalid or missing, and 0 while it is invalid
func newQuoteKeyStore(quote *DepositQuoteStore) *store.Derived[uint64] {
	var seq, current uint64
	return store.Derive(func() uint64 {
		if !quote.Get().IsValid() {
			current = 0
			return 0
		}
		if current == 0 {
			seq++
			current = seq
		}
		return current
	}, []store.Source{quote}, store.WithEquality(store.Strict[uint64]))
}

func estimateGasLimit(ctx context.Context, env *Env, deposit *DepositStore, quote *DepositQuoteStore, log *zap.Logger) (string, error) {
	asset := deposit.Asset()
	r := quote.Get()
	if asset == nil || !r.IsValid() {
		return env.GasUnits.SwapLimit(deposit.AssetChainID(), false), nil
	}

	p := gas.SwapGasParams{
		AssetToSell: asset,
		ChainID:     asset.ChainID,
		Quote:       r.Quote,
		SellAmount:  r.Quote.SellAmount,
	}
	var (
		limit string
		err   error
	)
	if r.Quote.IsCrosschain() {
		limit, err = env.Gas.EstimateUnlockAndCrosschainSwap(ctx, p)
	} else {
		limit, err = env.Gas.EstimateUnlockAndSwap(ctx, p)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		log.Warn("gas estimation failed, using reference limit", zap.Error(err))
		return env.GasUnits.SwapLimit(asset.ChainID, r.Quote.IsCrosschain()), nil
	}
	return limit, nil
}

// ComputeEstimatedFee formats the fee for executing gasLimit at settings.
// Without a native price the fee is shown in gwei; without settings or a
// limit it is "".
func ComputeEstimatedFee(settings *types.GasSettings, gasLimit, nativePrice string, currency types.NativeCurrency) string {
	if settings == nil || gasLimit == "" {
		return ""
	}
	fee := gas.CalculateFee(settings, gasLimit)
	if fee == "" {
		return ""
	}
	if nativePrice == "" || safemath.IsZero(nativePrice) {
		return safemath.FormatNumber(safemath.WeiToGwei(fee), 2) + " Gwei"
	}
	value := safemath.Mul(safemath.FromRaw(fee, defaultDecimals), nativePrice)
	return safemath.ToNativeDisplay(value, currency, true)
}

// ComputeMaxSwappableAmount is the largest amount of asset the user can
// sell. For the native asset the gas fee is held back; "" means the fee is
// not known yet.
func ComputeMaxSwappableAmount(asset *types.Asset, settings *types.GasSettings, gasLimit string) string {
	if asset == nil {
		return ""
	}
	if !asset.IsNativeAsset {
		return asset.Balance
	}
	if settings == nil || gasLimit == "" {
		return ""
	}
	fee := gas.CalculateFee(settings, gasLimit)
	if fee == "" {
		return ""
	}

	decimals := asset.Decimals
	if decimals <= 0 {
		decimals = defaultDecimals
	}
	remaining := safemath.Sub(asset.Balance, safemath.FromRaw(fee, decimals))
	if safemath.LessThan(remaining, "0") {
		return "0"
	}
	return safemath.TrimTrailingZeros(remaining)
}
