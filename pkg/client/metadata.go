package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"funding-quotes/pkg/types"
)

// ErrTokenNotFound is returned when the metadata service has no such token
var ErrTokenNotFound = errors.New("token not found")

// MetadataClient fetches token metadata and prices
type MetadataClient struct {
	http *httpClient
}

// NewMetadataClient creates a metadata service client
func NewMetadataClient(opts Options, logger *zap.Logger) *MetadataClient {
	return &MetadataClient{http: newHTTPClient("metadata", opts, logger)}
}

type externalTokenResponse struct {
	Data *types.ExternalToken `json:"data"`
}

// ExternalToken returns metadata and price for one token on one chain
func (c *MetadataClient) ExternalToken(ctx context.Context, address string, chainID types.ChainID, currency string) (*types.ExternalToken, error) {
	path := fmt.Sprintf("/v1/tokens/%d/%s", chainID, url.PathEscape(strings.ToLower(address)))
	query := url.Values{"currency": {strings.ToLower(currency)}}

	var resp externalTokenResponse
	if err := c.http.getJSON(ctx, path, query, &resp); err != nil {
		if IsNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token metadata: %w", err)
	}
	if resp.Data == nil {
		return nil, ErrTokenNotFound
	}
	return resp.Data, nil
}
