package funding

import (
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/store"
)

// AmountStore holds the amount the user typed, normalized
type AmountStore struct {
	amount *store.Store[string]
}

// NewAmountStore creates an amount store starting at "0"
func NewAmountStore() *AmountStore {
	return &AmountStore{amount: store.New("0", store.WithEquality(store.Strict[string]))}
}

// Amount returns the normalized amount
func (s *AmountStore) Amount() string {
	return s.amount.Get()
}

// Get implements store.Readable
func (s *AmountStore) Get() string {
	return s.amount.Get()
}

// IsZero reports whether the amount is zero
func (s *AmountStore) IsZero() bool {
	return safemath.IsZero(s.amount.Get())
}

// SetAmount normalizes raw and stores it. Writing the current value again
// notifies nobody.
func (s *AmountStore) SetAmount(raw string) {
	s.amount.Set(safemath.NormalizeAmount(raw))
}

// Watch implements store.Source
func (s *AmountStore) Watch(fn func()) func() {
	return s.amount.Watch(fn)
}
