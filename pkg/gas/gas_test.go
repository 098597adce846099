package gas

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"funding-quotes/pkg/types"
)

const (
	owner    = "0x1111111111111111111111111111111111111111"
	router   = "0x2222222222222222222222222222222222222222"
	usdcBase = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

type fakeChain struct {
	allowance  *big.Int
	swapGas    uint64
	approveGas uint64
	swapErr    error
	estimates  int
}

func (f *fakeChain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.estimates++
	if bytes.HasPrefix(msg.Data, erc20ABI.Methods["approve"].ID) {
		return f.approveGas, nil
	}
	return f.swapGas, f.swapErr
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if !bytes.HasPrefix(msg.Data, erc20ABI.Methods["allowance"].ID) {
		return nil, errors.New("unexpected call")
	}
	return common.LeftPadBytes(f.allowance.Bytes(), 32), nil
}

func newTestEstimator(chain *fakeChain) *Estimator {
	dial := func(context.Context, string) (ChainClient, error) { return chain, nil }
	return NewEstimator(map[types.ChainID]string{types.ChainBase: "http://rpc"}, DefaultUnits(), dial, zap.NewNop())
}

func swapQuote() *types.Quote {
	return &types.Quote{
		ChainID:         types.ChainBase,
		From:            owner,
		To:              router,
		Data:            "0xdeadbeef",
		Value:           "0",
		AllowanceTarget: router,
	}
}

func TestEstimateNativeSwap(t *testing.T) {
	chain := &fakeChain{swapGas: 100000}
	e := newTestEstimator(chain)

	limit, err := e.EstimateUnlockAndSwap(context.Background(), SwapGasParams{
		AssetToSell: types.NewAsset(types.NativeAssetPlaceholder, types.ChainBase, "ETH", 18, "1"),
		ChainID:     types.ChainBase,
		Quote:       swapQuote(),
		SellAmount:  "1000",
	})
	require.NoError(t, err)
	assert.Equal(t, "120000", limit)
}

func TestEstimateTokenNeedingApproval(t *testing.T) {
	chain := &fakeChain{allowance: big.NewInt(0), approveGas: 50000, swapGas: 100000}
	e := newTestEstimator(chain)

	limit, err := e.EstimateUnlockAndSwap(context.Background(), SwapGasParams{
		AssetToSell: types.NewAsset(usdcBase, types.ChainBase, "USDC", 6, "100"),
		ChainID:     types.ChainBase,
		Quote:       swapQuote(),
		SellAmount:  "5000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "260000", limit)
	assert.Equal(t, 1, chain.estimates)
}

func TestEstimateTokenWithAllowance(t *testing.T) {
	chain := &fakeChain{allowance: big.NewInt(10_000_000), swapGas: 150000}
	e := newTestEstimator(chain)

	limit, err := e.EstimateUnlockAndCrosschainSwap(context.Background(), SwapGasParams{
		AssetToSell: types.NewAsset(usdcBase, types.ChainBase, "USDC", 6, "100"),
		ChainID:     types.ChainBase,
		Quote:       swapQuote(),
		SellAmount:  "5000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "180000", limit)
}

func TestEstimateFallbacks(t *testing.T) {
	e := NewEstimator(nil, DefaultUnits(), nil, zap.NewNop())

	limit, err := e.EstimateUnlockAndSwap(context.Background(), SwapGasParams{ChainID: types.ChainArbitrum})
	require.NoError(t, err)
	assert.Equal(t, "350000", limit)

	limit, err = e.EstimateUnlockAndSwap(context.Background(), SwapGasParams{
		AssetToSell: types.NewAsset(types.NativeAssetPlaceholder, types.ChainBase, "ETH", 18, "1"),
		ChainID:     types.ChainBase,
		Quote:       swapQuote(),
	})
	require.NoError(t, err)
	assert.Equal(t, "200000", limit)

	chain := &fakeChain{swapErr: errors.New("execution reverted")}
	limit, err = newTestEstimator(chain).EstimateUnlockAndCrosschainSwap(context.Background(), SwapGasParams{
		AssetToSell: types.NewAsset(types.NativeAssetPlaceholder, types.ChainBase, "ETH", 18, "1"),
		ChainID:     types.ChainBase,
		Quote:       swapQuote(),
	})
	require.NoError(t, err)
	assert.Equal(t, "200000", limit)
}

func TestSelectSuggestions(t *testing.T) {
	legacy := SelectSuggestions(&types.MeteorologyResponse{Legacy: &types.MeteorologyLegacy{
		FastGasPrice: "3", ProposeGasPrice: "2", SafeGasPrice: "1.5",
	}})
	assert.Nil(t, legacy[types.GasSpeedCustom])
	assert.Equal(t, "3000000000", legacy[types.GasSpeedUrgent].GasPrice)
	assert.Equal(t, "2000000000", legacy[types.GasSpeedFast].GasPrice)
	assert.Equal(t, "1500000000", legacy[types.GasSpeedNormal].GasPrice)
	assert.False(t, legacy[types.GasSpeedFast].IsEIP1559)

	eip := SelectSuggestions(&types.MeteorologyResponse{EIP1559: &types.MeteorologyEIP1559{
		BaseFeeSuggestion: "10000000000",
		MaxPriorityFeeSuggestions: types.PriorityFeeSuggestions{
			Normal: "1000000000", Fast: "2000000000", Urgent: "3000000000",
		},
	}})
	fast := eip[types.GasSpeedFast]
	require.NotNil(t, fast)
	assert.True(t, fast.IsEIP1559)
	assert.Equal(t, "10000000000", fast.MaxBaseFee)
	assert.Equal(t, "2000000000", fast.MaxPriorityFee)

	assert.Nil(t, SelectSuggestions(nil))
	assert.Nil(t, SelectSuggestions(&types.MeteorologyResponse{}))
}

func TestCalculateFee(t *testing.T) {
	legacy := &types.GasSettings{GasPrice: "20000000000"}
	assert.Equal(t, "420000000000000", CalculateFee(legacy, "21000"))

	eip := &types.GasSettings{IsEIP1559: true, MaxBaseFee: "10", MaxPriorityFee: "2"}
	assert.Equal(t, "1200", CalculateFee(eip, "100"))

	assert.Equal(t, "0", CalculateFee(nil, "100"))
	assert.Equal(t, "0", CalculateFee(legacy, ""))
}

func TestUnitsSwapLimit(t *testing.T) {
	u := DefaultUnits()
	assert.Equal(t, "200000", u.SwapLimit(types.ChainBase, false))
	assert.Equal(t, "450000", u.SwapLimit(types.ChainArbitrum, true))
	assert.Equal(t, "200000", u.SwapLimit(types.ChainBase, true))
	assert.Equal(t, "200000", u.SwapLimit(types.ChainID(999), false))
}

func TestSlowDialDoesNotBlockOtherChains(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	fast := &fakeChain{swapGas: 100000}

	dial := func(ctx context.Context, rawURL string) (ChainClient, error) {
		if rawURL == "http://slow" {
			close(dialing)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return fast, nil
	}
	e := NewEstimator(map[types.ChainID]string{
		types.ChainBase:     "http://slow",
		types.ChainArbitrum: "http://fast",
	}, DefaultUnits(), dial, zap.NewNop())

	slowDone := make(chan string, 1)
	go func() {
		limit, _ := e.EstimateUnlockAndSwap(context.Background(), SwapGasParams{
			AssetToSell: types.NewAsset(types.NativeAssetPlaceholder, types.ChainBase, "ETH", 18, "1"),
			ChainID:     types.ChainBase,
			Quote:       swapQuote(),
		})
		slowDone <- limit
	}()
	<-dialing

	quote := swapQuote()
	quote.ChainID = types.ChainArbitrum
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	limit, err := e.EstimateUnlockAndSwap(ctx, SwapGasParams{
		AssetToSell: types.NewAsset(types.NativeAssetPlaceholder, types.ChainArbitrum, "ETH", 18, "1"),
		ChainID:     types.ChainArbitrum,
		Quote:       quote,
	})
	require.NoError(t, err)
	assert.Equal(t, "120000", limit)

	close(release)
	assert.Equal(t, "120000", <-slowDone)
}
