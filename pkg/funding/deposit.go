package funding

import (
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

const defaultDecimals = 18

// DepositStore holds the per-flow deposit selections: the asset to sell,
// the gas speed and the chain the asset list is filtered by
type DepositStore struct {
	cfg         *DepositConfig
	asset       *store.Store[*types.Asset]
	gasSpeed    *store.Store[types.GasSpeed]
	listChainID *store.Store[types.ChainID]
	source      store.Source
}

// NewDepositStore creates the deposit selections. The list filter starts on
// the destination chain.
func NewDepositStore(cfg *DepositConfig, initial *types.Asset) *DepositStore {
	s := &DepositStore{
		cfg:         cfg,
		asset:       store.New(initial, store.WithEquality(store.Strict[*types.Asset])),
		gasSpeed:    store.New(types.GasSpeedFast, store.WithEquality(store.Strict[types.GasSpeed])),
		listChainID: store.New(cfg.To.ChainID, store.WithEquality(store.Strict[types.ChainID])),
	}
	s.source = store.Combine(s.asset, s.gasSpeed, s.listChainID)
	return s
}

// Asset returns the selected asset, or nil
func (s *DepositStore) Asset() *types.Asset {
	return s.asset.Get()
}

// SetAsset selects the asset to sell. Assets compare by identity, so a
// refreshed copy of the same token still counts as a change.
func (s *DepositStore) SetAsset(a *types.Asset) bool {
	return s.asset.Set(a)
}

// HasAsset reports whether an asset is selected
func (s *DepositStore) HasAsset() bool {
	return s.asset.Get() != nil
}

// AssetChainID is the selected asset's chain, or the destination chain
func (s *DepositStore) AssetChainID() types.ChainID {
	if a := s.asset.Get(); a != nil {
		return a.ChainID
	}
	return s.cfg.To.ChainID
}

// AssetDecimals is the selected asset's decimals, or 18
func (s *DepositStore) AssetDecimals() int {
	if a := s.asset.Get(); a != nil && a.Decimals > 0 {
		return a.Decimals
	}
	return defaultDecimals
}

// GasSpeed returns the selected gas speed
func (s *DepositStore) GasSpeed() types.GasSpeed {
	return s.gasSpeed.Get()
}

// SetGasSpeed selects a gas speed and reports whether it changed
func (s *DepositStore) SetGasSpeed(speed types.GasSpeed) bool {
	return s.gasSpeed.Set(speed)
}

// ListChainID returns the chain the asset list is filtered by
func (s *DepositStore) ListChainID() types.ChainID {
	return s.listChainID.Get()
}

// SetListChainID changes the asset list filter
func (s *DepositStore) SetListChainID(id types.ChainID) bool {
	return s.listChainID.Set(id)
}

// Watch implements store.Source
func (s *DepositStore) Watch(fn func()) func() {
	return s.source.Watch(fn)
}
