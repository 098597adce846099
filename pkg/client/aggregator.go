package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"funding-quotes/pkg/types"
)

// CodeInsufficientGas is the aggregator error code for a sender that cannot pay gas
const CodeInsufficientGas = "INSUFFICIENT_GAS"

// AggregatorClient requests swap and bridge quotes
type AggregatorClient struct {
	http *httpClient
}

// NewAggregatorClient creates a swap aggregator client
func NewAggregatorClient(opts Options, logger *zap.Logger) *AggregatorClient {
	return &AggregatorClient{http: newHTTPClient("aggregator", opts, logger)}
}

// quoteEnvelope is a quote or an in-band error; the aggregator answers some
// rejections with 200
type quoteEnvelope struct {
	types.Quote
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// SameChainQuote requests a swap quote on params.ChainID
func (c *AggregatorClient) SameChainQuote(ctx context.Context, params types.QuoteParams) (*types.Quote, error) {
	return c.quote(ctx, "/v1/quote", params)
}

// CrosschainQuote requests a bridge quote from params.ChainID to params.ToChainID
func (c *AggregatorClient) CrosschainQuote(ctx context.Context, params types.QuoteParams) (*types.Quote, error) {
	return c.quote(ctx, "/v1/quote/crosschain", params)
}

func (c *AggregatorClient) quote(ctx context.Context, path string, params types.QuoteParams) (*types.Quote, error) {
	var env quoteEnvelope
	if err := c.http.postJSON(ctx, path, params, &env); err != nil {
		return nil, err
	}
	if env.Error {
		return nil, &APIError{StatusCode: http.StatusOK, Code: env.ErrorCode, Message: env.Message}
	}

	q := env.Quote
	return &q, nil
}

// IsInsufficientGas reports whether err is the aggregator's insufficient gas rejection
func IsInsufficientGas(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeInsufficientGas
}

// String describes the client for logs
func (c *AggregatorClient) String() string {
	return fmt.Sprintf("aggregator(%s)", c.http.opts.BaseURL)
}
