package funding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"funding-quotes/pkg/client"
	"funding-quotes/pkg/gas"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

const (
	account   = "0x1111111111111111111111111111111111111111"
	recipient = "0x3333333333333333333333333333333333333333"
	usdcBase  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	usdcArb   = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	usdcMain  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

type mockQuotes struct {
	mock.Mock
}

func (m *mockQuotes) FetchAndValidateSameChainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult {
	r, _ := m.Called(ctx, params).Get(0).(*types.QuoteResult)
	return r
}

func (m *mockQuotes) FetchAndValidateCrosschainQuote(ctx context.Context, params types.QuoteParams) *types.QuoteResult {
	r, _ := m.Called(ctx, params).Get(0).(*types.QuoteResult)
	return r
}

type mockMetadata struct {
	mock.Mock
}

func (m *mockMetadata) ExternalToken(ctx context.Context, address string, chainID types.ChainID, currency string) (*types.ExternalToken, error) {
	args := m.Called(ctx, address, chainID, currency)
	t, _ := args.Get(0).(*types.ExternalToken)
	return t, args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) GetData(ctx context.Context, chainID types.ChainID) (*types.MeteorologyResponse, error) {
	args := m.Called(ctx, chainID)
	r, _ := args.Get(0).(*types.MeteorologyResponse)
	return r, args.Error(1)
}

type mockGas struct {
	mock.Mock
}

func (m *mockGas) EstimateUnlockAndSwap(ctx context.Context, p gas.SwapGasParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockGas) EstimateUnlockAndCrosschainSwap(ctx context.Context, p gas.SwapGasParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	*Env
	quotes   *mockQuotes
	metadata *mockMetadata
	oracle   *mockOracle
	gas      *mockGas
	account  *store.Store[string]
}

// newTestEnv registers no expectations; tests add what they need before
// creating stores, since stores fetch as soon as they are built
func newTestEnv() *testEnv {
	te := &testEnv{
		quotes:   new(mockQuotes),
		metadata: new(mockMetadata),
		oracle:   new(mockOracle),
		gas:      new(mockGas),
		account:  store.New(account),
	}
	te.Env = &Env{
		Account:  te.account,
		Currency: store.New("USD"),
		Metadata: te.metadata,
		Oracle:   te.oracle,
		Quotes:   te.quotes,
		Gas:      te.gas,
		GasUnits: gas.DefaultUnits(),
		Logger:   zap.NewNop(),
	}
	return te
}

// background stubs the lookups a deposit flow makes besides its quote
func (te *testEnv) background() {
	te.metadata.On("ExternalToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, client.ErrTokenNotFound).Maybe()
	te.oracle.On("GetData", mock.Anything, mock.Anything).
		Return(eip1559Response(), nil).Maybe()
	te.gas.On("EstimateUnlockAndSwap", mock.Anything, mock.Anything).Return("200000", nil).Maybe()
	te.gas.On("EstimateUnlockAndCrosschainSwap", mock.Anything, mock.Anything).Return("300000", nil).Maybe()
}

func eip1559Response() *types.MeteorologyResponse {
	return &types.MeteorologyResponse{EIP1559: &types.MeteorologyEIP1559{
		BaseFeeSuggestion: "1000000000",
		CurrentBaseFee:    "900000000",
		MaxPriorityFeeSuggestions: types.PriorityFeeSuggestions{
			Normal: "500000000",
			Fast:   "1000000000",
			Urgent: "2000000000",
		},
		SecondsPerNewBlock: 2,
	}}
}

func arbitrumUSDCDeposit() *DepositConfig {
	return &DepositConfig{
		ID: "perps",
		To: DepositTarget{
			ChainID: types.ChainArbitrum,
			Token:   Token{Address: usdcArb, Decimals: 6, Symbol: "USDC"},
		},
		DirectTransferEnabled: true,
	}
}

func usdcOnBase(balance string) *types.Asset {
	return types.NewAsset(usdcBase, types.ChainBase, "USDC", 6, balance)
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
