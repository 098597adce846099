package types

import (
	"strconv"
	"strings"
)

// Price is a token's live price in the display currency
type Price struct {
	Value             float64 `json:"value"`
	RelativeChange24h float64 `json:"relative_change_24h"`
}

// Asset is a user-held token selected as the source of a deposit
type Asset struct {
	UniqueID      string  `json:"uniqueId"`
	Address       string  `json:"address"`
	ChainID       ChainID `json:"chainId"`
	Decimals      int     `json:"decimals"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	IconURL       string  `json:"iconUrl,omitempty"`
	Balance       string  `json:"balance"`
	Price         *Price  `json:"price,omitempty"`
	IsNativeAsset bool    `json:"isNativeAsset"`
}

// NewAsset builds an asset and fills in the derived identity fields
func NewAsset(address string, chainID ChainID, symbol string, decimals int, balance string) *Asset {
	return &Asset{
		UniqueID:      UniqueID(address, chainID),
		Address:       address,
		ChainID:       chainID,
		Decimals:      decimals,
		Symbol:        symbol,
		Name:          symbol,
		Balance:       balance,
		IsNativeAsset: IsNativeAsset(address, chainID),
	}
}

// UniqueID is the cache identity of a token on a chain
func UniqueID(address string, chainID ChainID) string {
	return strings.ToLower(address) + "_" + strconv.FormatInt(int64(chainID), 10)
}

// TokenColors are the brand colors the metadata service reports for a token
type TokenColors struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback,omitempty"`
	Shadow   string `json:"shadow,omitempty"`
}

// TokenNetwork is a token's deployment on one chain
type TokenNetwork struct {
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// ExternalToken is the raw metadata service payload for a single token
type ExternalToken struct {
	Name     string                   `json:"name"`
	Symbol   string                   `json:"symbol"`
	Decimals int                      `json:"decimals"`
	IconURL  string                   `json:"iconUrl"`
	Colors   TokenColors              `json:"colors"`
	Price    *Price                   `json:"price,omitempty"`
	Networks map[string]*TokenNetwork `json:"networks,omitempty"`
}

// NativeDisplay is an amount in the display currency, raw and formatted
type NativeDisplay struct {
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

// FormattedExternalAsset is an external token prepared for display
type FormattedExternalAsset struct {
	ExternalToken
	Address       string        `json:"address"`
	ChainID       ChainID       `json:"chainId"`
	IsNativeAsset bool          `json:"isNativeAsset"`
	NativePrice   NativeDisplay `json:"nativePrice"`
	Change        string        `json:"change"`
}

// WithdrawalTokenData is the subset of token metadata the withdrawal flow needs
type WithdrawalTokenData struct {
	IconURL  string                   `json:"iconUrl"`
	Networks map[string]*TokenNetwork `json:"networks"`
	Symbol   string                   `json:"symbol"`
}

// Network returns the deployment of the token on chainID, if any
func (w *WithdrawalTokenData) Network(chainID ChainID) *TokenNetwork {
	if w == nil || w.Networks == nil {
		return nil
	}
	return w.Networks[strconv.FormatInt(int64(chainID), 10)]
}
