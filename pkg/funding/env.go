// Package funding composes the deposit and withdrawal quote pipelines out of
// the primitives in pkg/store. Every store is created per flow by a factory
// that receives its dependencies explicitly.
package funding

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"funding-quotes/pkg/gas"
	"funding-quotes/pkg/kv"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

var (
	// ErrMissingRoute is returned when a withdrawal store is built without a route
	ErrMissingRoute = errors.New("funding: withdrawal config has no route")
	// ErrInvalidConfig is returned for a deposit config without a destination
	// or a route whose source token is incomplete
	ErrInvalidConfig = errors.New("funding: invalid flow config")
)

// TokenMetadata looks up a single token's metadata and price
type TokenMetadata interface {
	ExternalToken(ctx context.Context, address string, chainID types.ChainID, currency string) (*types.ExternalToken, error)
}

// GasOracle returns raw gas price suggestions for a chain
type GasOracle interface {
	GetData(ctx context.Context, chainID types.ChainID) (*types.MeteorologyResponse, error)
}

// QuoteFetcher fetches and validates quotes, folding failures into statuses
type QuoteFetcher interface {
	FetchAndValidateSameChainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult
	FetchAndValidateCrosschainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult
}

// GasEstimator estimates gas limits for executing a quote
type GasEstimator interface {
	EstimateUnlockAndSwap(ctx context.Context, p gas.SwapGasParams) (string, error)
	EstimateUnlockAndCrosschainSwap(ctx context.Context, p gas.SwapGasParams) (string, error)
}

// Env is the read-only context shared by every store of a flow: the wallet
// and currency owned elsewhere plus the external collaborators
type Env struct {
	Account  store.Readable[string]
	Currency store.Readable[string]

	Metadata TokenMetadata
	Oracle   GasOracle
	Quotes   QuoteFetcher
	Gas      GasEstimator
	GasUnits gas.Units

	// Storage is optional; without it withdrawal chain selection is not persisted
	Storage kv.Storage
	Logger  *zap.Logger
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) currency() string {
	if e.Currency == nil {
		return "USD"
	}
	if c := e.Currency.Get(); c != "" {
		return c
	}
	return "USD"
}

func (e *Env) account() string {
	if e.Account == nil {
		return ""
	}
	return e.Account.Get()
}

func (e *Env) sources() []store.Source {
	var deps []store.Source
	if e.Account != nil {
		deps = append(deps, e.Account)
	}
	if e.Currency != nil {
		deps = append(deps, e.Currency)
	}
	return deps
}
