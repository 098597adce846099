package funding

import (
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// AmountToReceive is what the deposit target will be credited
type AmountToReceive struct {
	FormattedAmount string            `json:"formattedAmount"`
	Status          types.QuoteStatus `json:"status"`
}

// NewAmountToReceiveStore derives the credited amount from the quote
func NewAmountToReceiveStore(cfg *DepositConfig, amount *AmountStore, quote *DepositQuoteStore) *store.Derived[AmountToReceive] {
	return store.Derive(func() AmountToReceive {
		if amount.IsZero() {
			return AmountToReceive{Status: types.QuoteStatusZeroAmountError}
		}

		r, ok := quote.GetData()
		if !ok || r == nil {
			return AmountToReceive{Status: types.QuoteStatusPending}
		}
		if !r.IsValid() {
			return AmountToReceive{Status: r.Status}
		}

		raw := r.Quote.BuyAmountMinusFees
		if raw == "" {
			raw = r.Quote.BuyAmount
		}
		return AmountToReceive{
			FormattedAmount: safemath.TrimTrailingZeros(safemath.FromRaw(raw, cfg.To.Token.Decimals)),
			Status:          types.QuoteStatusSuccess,
		}
	}, []store.Source{amount, quote}, store.WithEquality(store.Strict[AmountToReceive]))
}
