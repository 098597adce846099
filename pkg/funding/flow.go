package funding

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// DepositFlow owns every store of one deposit. Stores are created together
// and released together by Close.
type DepositFlow struct {
	ID     uuid.UUID
	Config *DepositConfig

	Amount          *AmountStore
	Deposit         *DepositStore
	NativeAsset     *ExternalTokenStore
	Quote           *DepositQuoteStore
	Gas             *DepositGasStores
	AmountToReceive *store.Derived[AmountToReceive]

	logger *zap.Logger
}

// NewDepositFlow builds the deposit pipeline starting from asset, which may be nil
func NewDepositFlow(cfg *DepositConfig, env *Env, asset *types.Asset) (*DepositFlow, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	f := &DepositFlow{ID: uuid.New(), Config: cfg}
	f.logger = env.logger().With(zap.String("flow", f.ID.String()), zap.String("deposit", cfg.ID))

	f.Amount = NewAmountStore()
	f.Deposit = NewDepositStore(cfg, asset)
	f.NativeAsset = NewExternalTokenStore(env, f.Deposit)
	f.Quote = NewDepositQuoteStore(cfg, env, f.Amount, f.Deposit)
	f.Gas = NewDepositGasStores(env, f.Deposit, f.Quote, f.NativeAsset)
	f.AmountToReceive = NewAmountToReceiveStore(cfg, f.Amount, f.Quote)

	f.logger.Debug("deposit flow created", zap.Stringer("to", cfg.To.ChainID), zap.String("token", cfg.To.Token.Symbol))
	return f, nil
}

// Strategy is the execution path for the current quote
func (f *DepositFlow) Strategy() Strategy {
	r := f.Quote.Get()
	if !r.IsValid() {
		return ""
	}
	return DetermineStrategy(f.Config, r.Quote)
}

// RecipientMatches reports whether the current quote pays out to the
// configured recipient
func (f *DepositFlow) RecipientMatches() bool {
	r := f.Quote.Get()
	if !r.IsValid() {
		return false
	}
	if f.Config.To.Recipient == nil {
		return true
	}
	return CrosschainQuoteTargetsRecipient(r.Quote, f.Config.To.Recipient.Get())
}

// Refresh runs the post-deposit refresh schedule
func (f *DepositFlow) Refresh(ctx context.Context) error {
	return ExecuteRefreshSchedule(ctx, f.Config.Refresh, f.logger)
}

// Close releases every store of the flow
func (f *DepositFlow) Close() {
	f.AmountToReceive.Close()
	f.Gas.Close()
	f.Quote.Close()
	f.NativeAsset.Close()
	f.logger.Debug("deposit flow closed")
}

// WithdrawalFlow owns every store of one withdrawal
type WithdrawalFlow struct {
	ID     uuid.UUID
	Config *WithdrawalConfig

	Amount     *AmountStore
	Withdrawal *WithdrawalStore
	Token      *WithdrawalTokenStore
	BuyToken   *store.Derived[string]
	Quote      *WithdrawalQuoteStore

	logger *zap.Logger
}

// NewWithdrawalFlow builds the withdrawal pipeline. It fails with
// ErrMissingRoute when the config has no route.
func NewWithdrawalFlow(ctx context.Context, cfg *WithdrawalConfig, env *Env) (*WithdrawalFlow, error) {
	withdrawal, err := NewWithdrawalStore(ctx, cfg, env)
	if err != nil {
		return nil, err
	}

	f := &WithdrawalFlow{ID: uuid.New(), Config: cfg, Withdrawal: withdrawal}
	f.logger = env.logger().With(zap.String("flow", f.ID.String()), zap.String("withdrawal", cfg.ID))

	f.Amount = NewAmountStore()
	f.Token = NewWithdrawalTokenStore(env, cfg.Route)
	f.BuyToken = NewBuyTokenAddressStore(f.Token, f.Withdrawal)
	f.Quote, err = NewWithdrawalQuoteStore(cfg, env, f.Amount, f.Withdrawal, f.BuyToken)
	if err != nil {
		f.BuyToken.Close()
		f.Token.Close()
		return nil, err
	}

	f.logger.Debug("withdrawal flow created", zap.Stringer("chain", withdrawal.SelectedChainID()))
	return f, nil
}

// SwapRequirement classifies the withdrawal to the selected chain
func (f *WithdrawalFlow) SwapRequirement() SwapRequirement {
	buy := f.BuyToken.Get()
	if buy == "" {
		return SwapNone
	}
	return GetWithdrawalSwapRequirement(f.Config.Route, f.Withdrawal.SelectedChainID(), buy)
}

// Refresh runs the post-withdrawal refresh schedule
func (f *WithdrawalFlow) Refresh(ctx context.Context) error {
	return ExecuteRefreshSchedule(ctx, f.Config.Refresh, f.logger)
}

// Close releases every store and flushes the persisted chain
func (f *WithdrawalFlow) Close(ctx context.Context) error {
	f.Quote.Close()
	f.BuyToken.Close()
	f.Token.Close()
	f.logger.Debug("withdrawal flow closed")
	return f.Withdrawal.Close(ctx)
}
