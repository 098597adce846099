package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"funding-quotes/config"
	"funding-quotes/pkg/client"
	"funding-quotes/pkg/funding"
	"funding-quotes/pkg/gas"
	"funding-quotes/pkg/kv"
	"funding-quotes/pkg/logger"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// app wires configuration into the clients and stores a command needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	storage     kv.Storage
	metadata    *client.MetadataClient
	meteorology *client.MeteorologyClient
	oneClick    *client.OneClickClient
	quotes      *client.QuoteRouter
	estimator   *gas.Estimator

	account  *store.Store[string]
	currency *store.Store[string]
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	account := cfg.Account
	if flag, _ := cmd.Flags().GetString("account"); flag != "" {
		account = flag
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		account:  store.New(account),
		currency: store.New(cfg.Currency),
	}

	opts := func(baseURL string) client.Options {
		return client.Options{
			BaseURL:           baseURL,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.HTTP.Timeout,
			RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
			MaxRetries:        cfg.HTTP.MaxRetries,
		}
	}
	a.metadata = client.NewMetadataClient(opts(cfg.MetadataURL), log.Named("metadata"))
	a.meteorology = client.NewMeteorologyClient(opts(cfg.MeteorologyURL), log.Named("meteorology"))
	aggregator := client.NewAggregatorClient(opts(cfg.AggregatorURL), log.Named("aggregator"))

	// Without a JWT every cross-chain source goes to the aggregator
	var bridge client.QuoteProvider
	if cfg.JWTToken != "" {
		a.oneClick = client.NewOneClickClient(cfg.BaseURL, cfg.JWTToken, log.Named("oneclick"))
		bridge = a.oneClick
	}
	a.quotes = client.NewQuoteRouter(aggregator, bridge, log.Named("quotes"))
	a.estimator = gas.NewEstimator(cfg.RPC, gas.DefaultUnits(), gas.DialEthclient, log.Named("gas"))

	if a.storage, err = openStorage(ctx, cfg.Storage, log); err != nil {
		return nil, err
	}
	return a, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (kv.Storage, error) {
	switch cfg.Backend {
	case "redis":
		s, err := kv.NewRedisStorage(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.TTL,
		}, log.Named("redis"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file":
		s, err := kv.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

func (a *app) env() *funding.Env {
	return &funding.Env{
		Account:  a.account,
		Currency: a.currency,
		Metadata: a.metadata,
		Oracle:   a.meteorology,
		Quotes:   a.quotes,
		Gas:      a.estimator,
		GasUnits: a.estimator.Units(),
		Storage:  a.storage,
		Logger:   a.logger,
	}
}

func (a *app) depositConfig(recipient string) *funding.DepositConfig {
	d := a.cfg.Deposit
	cfg := &funding.DepositConfig{
		ID: d.ID,
		To: funding.DepositTarget{
			ChainID: d.ChainID,
			Token:   funding.Token{Address: d.Token.Address, Decimals: d.Token.Decimals, Symbol: d.Token.Symbol},
		},
		Quote:                 funding.QuoteConfig{FeeBps: d.FeeBps, Source: d.Source},
		DirectTransferEnabled: d.DirectTransfer,
	}
	if d.Slippage > 0 {
		slippage := d.Slippage
		cfg.Quote.Slippage = &slippage
	}
	if recipient == "" {
		recipient = d.Recipient
	}
	if recipient != "" {
		cfg.To.Recipient = store.New(recipient)
	}
	return cfg
}

func (a *app) withdrawalConfig(balance string) *funding.WithdrawalConfig {
	w := a.cfg.Withdrawal
	route := &funding.RouteConfig{
		From: funding.RouteFrom{
			ChainID: w.FromChainID,
			Token:   funding.Token{Address: w.FromToken.Address, Decimals: w.FromToken.Decimals, Symbol: w.FromToken.Symbol},
		},
		To: funding.RouteTo{
			Token:                funding.TokenAnchor{Address: w.ToTokenAddress, ChainID: w.ToTokenChainID, Symbol: w.ToTokenSymbol},
			DefaultChain:         w.DefaultChainID,
			AllowedChains:        w.AllowedChains,
			EnableSameChainSwap:  w.SameChainSwap,
			PersistSelectedChain: w.PersistChain,
		},
		Quote: funding.QuoteConfig{FeeBps: a.cfg.Deposit.FeeBps, Source: a.cfg.Deposit.Source},
	}
	if w.FromAddress != "" {
		route.From.Address = store.New(w.FromAddress)
	}
	return &funding.WithdrawalConfig{
		ID:             w.ID,
		AmountDecimals: w.AmountDecimals,
		Balance:        store.New(balance),
		Route:          route,
	}
}

func (a *app) requireAccount() error {
	if a.account.Get() == "" {
		return fmt.Errorf("no account address. Pass --account or set FUNDING_QUOTES_ACCOUNT")
	}
	return nil
}

func (a *app) nativeCurrency() types.NativeCurrency {
	return types.LookupCurrency(a.currency.Get())
}

func (a *app) Close() {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("failed to close storage", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
