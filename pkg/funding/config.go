package funding

import (
	"context"
	"time"

	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// Token is a token on a known chain
type Token struct {
	Address  string
	Decimals int
	Symbol   string
	IconURL  string
}

// QuoteConfig tunes the quote request of a flow
type QuoteConfig struct {
	FeeBps int
	// Slippage in percent; nil uses the chain default
	Slippage *float64
	// Source for cross-chain quotes; empty uses DefaultCrosschainSource
	Source types.Source
}

// DefaultCrosschainSource is used when a flow does not pick a bridge source
const DefaultCrosschainSource = types.SourceRelay

func (q QuoteConfig) slippage(chainID types.ChainID) float64 {
	if q.Slippage != nil {
		return *q.Slippage
	}
	return types.DefaultSlippage(chainID)
}

func (q QuoteConfig) crosschainSource() types.Source {
	if q.Source != "" {
		return q.Source
	}
	return DefaultCrosschainSource
}

// RefreshConfig runs Handler once per delay after a flow completes
type RefreshConfig struct {
	Delays  []time.Duration
	Handler func(ctx context.Context) error
}

// DepositTarget is where deposited funds settle
type DepositTarget struct {
	ChainID types.ChainID
	Token   Token
	// Recipient, when set, must resolve before a quote is attempted
	Recipient store.Readable[string]
}

// DepositConfig configures a deposit flow
type DepositConfig struct {
	ID                    string
	To                    DepositTarget
	Quote                 QuoteConfig
	DirectTransferEnabled bool
	Refresh               *RefreshConfig
}

func (c *DepositConfig) validate() error {
	if c == nil || c.To.ChainID == 0 || c.To.Token.Address == "" {
		return ErrInvalidConfig
	}
	return nil
}

// RouteFrom is the source side of a withdrawal
type RouteFrom struct {
	ChainID types.ChainID
	Token   Token
	// Address of the account funds leave from; nil uses the wallet account
	Address store.Readable[string]
}

// TokenAnchor identifies the token to withdraw into by one of its deployments
type TokenAnchor struct {
	Address string
	ChainID types.ChainID
	Symbol  string
}

// RouteTo is the destination side of a withdrawal
type RouteTo struct {
	Token                TokenAnchor
	DefaultChain         types.ChainID
	DefaultChainFunc     func() types.ChainID
	AllowedChains        []types.ChainID
	EnableSameChainSwap  bool
	PersistSelectedChain bool
}

// RouteConfig describes how withdrawn funds reach the user
type RouteConfig struct {
	From  RouteFrom
	To    RouteTo
	Quote QuoteConfig
}

func (r *RouteConfig) validate() error {
	if r == nil {
		return ErrMissingRoute
	}
	if r.From.ChainID == 0 || r.From.Token.Address == "" || r.From.Token.Decimals <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WithdrawalConfig configures a withdrawal flow
type WithdrawalConfig struct {
	ID             string
	AmountDecimals int
	Balance        store.Readable[string]
	Route          *RouteConfig
	Refresh        *RefreshConfig
}

func (c *WithdrawalConfig) defaultChain() types.ChainID {
	if c.Route == nil {
		return 0
	}
	if c.Route.To.DefaultChainFunc != nil {
		return c.Route.To.DefaultChainFunc()
	}
	if c.Route.To.DefaultChain != 0 {
		return c.Route.To.DefaultChain
	}
	return c.Route.From.ChainID
}

func (c *WithdrawalConfig) allows(chainID types.ChainID) bool {
	if c.Route == nil || len(c.Route.To.AllowedChains) == 0 {
		return true
	}
	for _, id := range c.Route.To.AllowedChains {
		if id == chainID {
			return true
		}
	}
	return false
}
