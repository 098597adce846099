package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"funding-quotes/pkg/types"
)

// ErrUnknownGasShape is returned for oracle payloads that are neither legacy nor EIP-1559
var ErrUnknownGasShape = errors.New("unrecognized gas oracle response")

// MeteorologyClient fetches gas price suggestions per chain
type MeteorologyClient struct {
	http *httpClient
}

// NewMeteorologyClient creates a gas oracle client
func NewMeteorologyClient(opts Options, logger *zap.Logger) *MeteorologyClient {
	return &MeteorologyClient{http: newHTTPClient("meteorology", opts, logger)}
}

// GetData returns the raw suggestions for chainID
func (c *MeteorologyClient) GetData(ctx context.Context, chainID types.ChainID) (*types.MeteorologyResponse, error) {
	body, err := c.http.do(ctx, "GET", fmt.Sprintf("/%d", chainID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas data: %w", err)
	}
	return ParseMeteorology(body)
}

// ParseMeteorology detects which of the two oracle shapes body carries
func ParseMeteorology(body []byte) (*types.MeteorologyResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrUnknownGasShape
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return nil, ErrUnknownGasShape
	}

	if legacy := data.Get("legacy"); legacy.Exists() {
		return &types.MeteorologyResponse{
			Legacy: &types.MeteorologyLegacy{
				FastGasPrice:    legacy.Get("fastGasPrice").String(),
				ProposeGasPrice: legacy.Get("proposeGasPrice").String(),
				SafeGasPrice:    legacy.Get("safeGasPrice").String(),
			},
		}, nil
	}

	if data.Get("baseFeeSuggestion").Exists() {
		return &types.MeteorologyResponse{
			EIP1559: &types.MeteorologyEIP1559{
				BaseFeeSuggestion: data.Get("baseFeeSuggestion").String(),
				CurrentBaseFee:    data.Get("currentBaseFee").String(),
				MaxPriorityFeeSuggestions: types.PriorityFeeSuggestions{
					Normal: data.Get("maxPriorityFeeSuggestions.normal").String(),
					Fast:   data.Get("maxPriorityFeeSuggestions.fast").String(),
					Urgent: data.Get("maxPriorityFeeSuggestions.urgent").String(),
				},
				SecondsPerNewBlock: data.Get("secondsPerNewBlock").Int(),
			},
		}, nil
	}

	return nil, ErrUnknownGasShape
}
