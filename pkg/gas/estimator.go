package gas

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

// ERC20 allowance and approve ABI
const erc20AllowanceABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20AllowanceABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
	}
	return parsed
}

// ChainClient is the subset of ethclient.Client the estimator needs
type ChainClient interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dialer opens a ChainClient for an RPC URL
type Dialer func(ctx context.Context, rawURL string) (ChainClient, error)

// DialEthclient is the production Dialer
func DialEthclient(ctx context.Context, rawURL string) (ChainClient, error) {
	return ethclient.DialContext(ctx, rawURL)
}

// SwapGasParams identifies the swap to estimate
type SwapGasParams struct {
	AssetToSell *types.Asset
	ChainID     types.ChainID
	Quote       *types.Quote
	// SellAmount is in raw units
	SellAmount string
}

// Estimator estimates the gas limit of approving and executing a quote,
// falling back to the reference table whenever the chain cannot be asked
type Estimator struct {
	rpcURLs map[types.ChainID]string
	units   Units
	dial    Dialer
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[types.ChainID]ChainClient
}

// NewEstimator creates an estimator. A nil dialer uses ethclient.
func NewEstimator(rpcURLs map[types.ChainID]string, units Units, dial Dialer, logger *zap.Logger) *Estimator {
	if dial == nil {
		dial = DialEthclient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{
		rpcURLs: rpcURLs,
		units:   units,
		dial:    dial,
		logger:  logger.Named("gas"),
		clients: make(map[types.ChainID]ChainClient),
	}
}

// Units returns the reference table the estimator falls back to
func (e *Estimator) Units() Units {
	return e.units
}

// EstimateUnlockAndSwap estimates approval plus a same-chain swap
func (e *Estimator) EstimateUnlockAndSwap(ctx context.Context, p SwapGasParams) (string, error) {
	return e.estimate(ctx, p, false)
}

// EstimateUnlockAndCrosschainSwap estimates approval plus a bridge
func (e *Estimator) EstimateUnlockAndCrosschainSwap(ctx context.Context, p SwapGasParams) (string, error) {
	return e.estimate(ctx, p, true)
}

// client dials outside the lock so a slow endpoint only delays its own chain.
// When two dials race, the first stored client wins.
func (e *Estimator) client(ctx context.Context, chainID types.ChainID) (ChainClient, error) {
	e.mu.Lock()
	if c, ok := e.clients[chainID]; ok {
		e.mu.Unlock()
		return c, nil
	}
	url, ok := e.rpcURLs[chainID]
	e.mu.Unlock()
	if !ok || url == "" {
		return nil, fmt.Errorf("no RPC URL configured for chain %s", chainID)
	}

	c, err := e.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.clients[chainID]; ok {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		return existing, nil
	}
	e.clients[chainID] = c
	return c, nil
}

func (e *Estimator) estimate(ctx context.Context, p SwapGasParams, crosschain bool) (string, error) {
	fallback := e.units.SwapLimit(p.ChainID, crosschain)
	if p.Quote == nil || p.AssetToSell == nil {
		return fallback, nil
	}

	client, err := e.client(ctx, p.ChainID)
	if err != nil {
		e.logger.Debug("using reference gas limit", zap.Stringer("chain", p.ChainID), zap.Error(err))
		return fallback, nil
	}

	from := common.HexToAddress(p.Quote.From)
	sellAmount := safemath.RawToBig(p.SellAmount)

	if !p.AssetToSell.IsNativeAsset && common.IsHexAddress(p.Quote.AllowanceTarget) {
		token := common.HexToAddress(p.AssetToSell.Address)
		spender := common.HexToAddress(p.Quote.AllowanceTarget)

		allowance, err := e.allowance(ctx, client, token, from, spender)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			e.logger.Debug("allowance check failed", zap.Error(err))
			return fallback, nil
		}

		if allowance.Cmp(sellAmount) < 0 {
			// The swap reverts in simulation until the approval lands
			approveGas := e.estimateApprove(ctx, client, token, from, spender, sellAmount)
			return safemath.Add(approveGas, fallback), nil
		}
	}

	if !common.IsHexAddress(p.Quote.To) || p.Quote.Data == "" {
		return fallback, nil
	}

	to := common.HexToAddress(p.Quote.To)
	msg := ethereum.CallMsg{
		From:  from,
		To:    &to,
		Data:  common.FromHex(p.Quote.Data),
		Value: safemath.RawToBig(p.Quote.Value),
	}
	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Debug("swap estimate failed", zap.Stringer("chain", p.ChainID), zap.Error(err))
		return fallback, nil
	}

	return strconv.FormatUint(pad(gas), 10), nil
}

func (e *Estimator) allowance(ctx context.Context, client ChainClient, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

func (e *Estimator) estimateApprove(ctx context.Context, client ChainClient, token, owner, spender common.Address, amount *big.Int) string {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return e.units.BasicApprove
	}

	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: owner, To: &token, Data: data})
	if err != nil {
		return e.units.BasicApprove
	}
	return strconv.FormatUint(pad(gas), 10)
}

// pad adds a 20% buffer
func pad(gas uint64) uint64 {
	return gas * 120 / 100
}
