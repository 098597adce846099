package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

// QuoteProvider returns raw, unvalidated quotes
type QuoteProvider interface {
	SameChainQuote(ctx context.Context, params types.QuoteParams) (*types.Quote, error)
	CrosschainQuote(ctx context.Context, params types.QuoteParams) (*types.Quote, error)
}

// QuoteRouter fetches quotes from the provider matching the requested source
// and folds every failure into a quote status
type QuoteRouter struct {
	aggregator QuoteProvider
	oneClick   QuoteProvider
	logger     *zap.Logger
}

// NewQuoteRouter creates a router. oneClick may be nil, in which case the
// aggregator serves every source.
func NewQuoteRouter(aggregator, oneClick QuoteProvider, logger *zap.Logger) *QuoteRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteRouter{aggregator: aggregator, oneClick: oneClick, logger: logger.Named("quotes")}
}

// FetchAndValidateSameChainQuote returns a valid swap quote or an error status
func (r *QuoteRouter) FetchAndValidateSameChainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult {
	q, err := r.aggregator.SameChainQuote(ctx, params)
	return r.validate(ctx, params, q, err)
}

// FetchAndValidateCrosschainQuote returns a valid bridge quote or an error status
func (r *QuoteRouter) FetchAndValidateCrosschainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult {
	provider := r.aggregator
	if params.Source == types.SourceOneClick && r.oneClick != nil {
		provider = r.oneClick
	}
	q, err := provider.CrosschainQuote(ctx, params)
	return r.validate(ctx, params, q, err)
}

func (r *QuoteRouter) validate(ctx context.Context, params types.QuoteParams, q *types.Quote, err error) *types.QuoteResult {
	if err != nil {
		if IsInsufficientGas(err) {
			return types.QuoteSentinel(types.QuoteStatusInsufficientGas)
		}
		if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			r.logger.Warn("quote request failed",
				zap.Stringer("chain", params.ChainID),
				zap.Stringer("toChain", params.ToChainID),
				zap.Error(err))
		}
		return types.QuoteSentinel(types.QuoteStatusError)
	}

	if !IsValidQuote(q, params) {
		r.logger.Warn("invalid quote response",
			zap.Stringer("chain", params.ChainID),
			zap.Stringer("toChain", params.ToChainID))
		return types.QuoteSentinel(types.QuoteStatusError)
	}
	return types.QuoteFound(q)
}

// IsValidQuote checks that a quote has positive amounts and settles where it was asked to
func IsValidQuote(q *types.Quote, params types.QuoteParams) bool {
	if q == nil {
		return false
	}
	if safemath.RawToBig(q.SellAmount).Sign() <= 0 || safemath.RawToBig(q.BuyAmount).Sign() <= 0 {
		return false
	}
	if params.IsCrosschain() && q.ToChainID != params.ToChainID {
		return false
	}
	return true
}
