package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"go.uber.org/zap"

	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

const (
	oneClickTokensTTL = 10 * time.Minute
	oneClickDeadline  = time.Hour
)

// ErrSameChainUnsupported is returned for same-chain requests; 1Click only bridges
var ErrSameChainUnsupported = errors.New("1Click does not quote same-chain swaps")

// oneClickBlockchains maps chain ids to 1Click blockchain names
var oneClickBlockchains = map[types.ChainID]string{
	types.ChainMainnet:   "eth",
	types.ChainOptimism:  "op",
	types.ChainBSC:       "bsc",
	types.ChainPolygon:   "pol",
	types.ChainBase:      "base",
	types.ChainArbitrum:  "arb",
	types.ChainAvalanche: "avax",
	types.ChainSolana:    "sol",
}

// OneClickBlockchain returns the 1Click blockchain name of chainID
func OneClickBlockchain(chainID types.ChainID) (string, bool) {
	name, ok := oneClickBlockchains[chainID]
	return name, ok
}

// OneClickClient quotes cross-chain transfers through NEAR Intents
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
	logger   *zap.Logger

	mu        sync.Mutex
	tokens    []oneclick.TokenResponse
	fetchedAt time.Time
}

// NewOneClickClient creates a new 1Click API client
func NewOneClickClient(baseURL, jwtToken string, logger *zap.Logger) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OneClickClient{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
		logger:   logger.Named("oneclick"),
	}
}

func (c *OneClickClient) authContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// GetSupportedTokens retrieves all supported tokens, cached for a few minutes
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	c.mu.Lock()
	if c.tokens != nil && time.Since(c.fetchedAt) < oneClickTokensTTL {
		tokens := c.tokens
		c.mu.Unlock()
		return tokens, nil
	}
	c.mu.Unlock()

	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, &APIError{StatusCode: httpResp.StatusCode}
	}

	c.mu.Lock()
	c.tokens, c.fetchedAt = resp, time.Now()
	c.mu.Unlock()
	return resp, nil
}

// FindToken finds the 1Click token for an address on a chain. Native assets
// are listed without a contract address.
func (c *OneClickClient) FindToken(ctx context.Context, address string, chainID types.ChainID) (*oneclick.TokenResponse, error) {
	chain, ok := oneClickBlockchains[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %s is not supported by 1Click", chainID)
	}

	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	native := types.IsNativeAsset(address, chainID)
	for i := range tokens {
		token := tokens[i]
		if !strings.EqualFold(token.GetBlockchain(), chain) {
			continue
		}
		contract := token.GetContractAddress()
		if native && contract == "" {
			return &token, nil
		}
		if contract != "" && types.SameAddress(contract, address, chainID) {
			return &token, nil
		}
	}

	return nil, fmt.Errorf("token %s on %s: %w", address, chain, ErrTokenNotFound)
}

// SameChainQuote always fails
func (c *OneClickClient) SameChainQuote(context.Context, types.QuoteParams) (*types.Quote, error) {
	return nil, ErrSameChainUnsupported
}

// CrosschainQuote asks 1Click for a dry quote of an exact-input bridge
func (c *OneClickClient) CrosschainQuote(ctx context.Context, params types.QuoteParams) (*types.Quote, error) {
	sourceToken, err := c.FindToken(ctx, params.SellTokenAddress, params.ChainID)
	if err != nil {
		return nil, fmt.Errorf("source token error: %w", err)
	}
	destToken, err := c.FindToken(ctx, params.BuyTokenAddress, params.ToChainID)
	if err != nil {
		return nil, fmt.Errorf("destination token error: %w", err)
	}

	recipient := params.Receiver
	if recipient == "" {
		recipient = params.FromAddress
	}

	quoteReq := oneclick.NewQuoteRequest(
		true,
		"EXACT_INPUT",
		float32(params.Slippage*100),
		sourceToken.GetAssetId(),
		"ORIGIN_CHAIN",
		destToken.GetAssetId(),
		params.SellAmount,
		params.FromAddress,
		"ORIGIN_CHAIN",
		recipient,
		"DESTINATION_CHAIN",
		time.Now().Add(oneClickDeadline),
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authContext(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		if httpResp != nil {
			defer httpResp.Body.Close()
			body, _ := io.ReadAll(httpResp.Body)
			return nil, parseAPIError(httpResp.StatusCode, body)
		}
		return nil, fmt.Errorf("failed to get quote from API: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: httpResp.StatusCode}
	}
	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	details := resp.GetQuote()
	buyDecimals := int(float64(destToken.GetDecimals()))
	buyAmount := safemath.ToRaw(details.GetAmountOutFormatted(), buyDecimals)

	c.logger.Debug("1Click quote",
		zap.String("in", details.GetAmountInFormatted()),
		zap.String("out", details.GetAmountOutFormatted()))

	return &types.Quote{
		ChainID:             params.ChainID,
		ToChainID:           params.ToChainID,
		From:                params.FromAddress,
		To:                  details.GetDepositAddress(),
		SellTokenAddress:    params.SellTokenAddress,
		BuyTokenAddress:     params.BuyTokenAddress,
		SellAmount:          params.SellAmount,
		BuyAmount:           buyAmount,
		BuyAmountMinusFees:  buyAmount,
		Fee:                 "0",
		Recipient:           recipient,
		Refuel:              params.Refuel,
		Source:              types.SourceOneClick,
		DepositAddress:      details.GetDepositAddress(),
		TimeEstimateSeconds: float64(details.GetTimeEstimate()),
		Routes:              []types.Route{{Source: string(types.SourceOneClick), Recipient: recipient}},
	}, nil
}

// GetSwapStatus checks the execution status of a bridge by its deposit address
func (c *OneClickClient) GetSwapStatus(ctx context.Context, depositAddress string) (*oneclick.GetExecutionStatusResponse, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.authContext(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, &APIError{StatusCode: httpResp.StatusCode}
	}

	return resp, nil
}
