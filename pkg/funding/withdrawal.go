package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"funding-quotes/pkg/kv"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

// persistInterval bounds how often the selected chain is written to storage
const persistInterval = time.Second

// WithdrawalStore holds the withdrawal destination chain and the submit flag
type WithdrawalStore struct {
	cfg             *WithdrawalConfig
	selectedChainID *store.Store[types.ChainID]
	isSubmitting    *store.Store[bool]
	source          store.Source

	writer *kv.ThrottledWriter
	key    string
	logger *zap.Logger
}

// NewWithdrawalStore creates the withdrawal selections. When the route
// persists its chain and env has storage, a previously saved chain is
// restored as long as it is still allowed.
func NewWithdrawalStore(ctx context.Context, cfg *WithdrawalConfig, env *Env) (*WithdrawalStore, error) {
	if cfg == nil {
		return nil, ErrMissingRoute
	}
	if err := cfg.Route.validate(); err != nil {
		return nil, err
	}

	s := &WithdrawalStore{
		cfg:    cfg,
		key:    fmt.Sprintf("withdrawal:%s:selectedChainId", cfg.ID),
		logger: env.logger().With(zap.String("withdrawal", cfg.ID)),
	}

	initial := cfg.defaultChain()
	if cfg.Route.To.PersistSelectedChain && env.Storage != nil {
		s.writer = kv.NewThrottledWriter(env.Storage, persistInterval, s.logger)

		var saved types.ChainID
		err := env.Storage.Get(ctx, s.key, &saved)
		switch {
		case err == nil && cfg.allows(saved):
			initial = saved
		case err == nil:
			s.logger.Info("ignoring persisted chain that is no longer allowed", zap.Stringer("chain", saved))
		case !errors.Is(err, kv.ErrNotFound):
			s.logger.Warn("failed to load persisted chain", zap.Error(err))
		}
	}

	s.selectedChainID = store.New(initial, store.WithEquality(store.Strict[types.ChainID]))
	s.isSubmitting = store.New(false, store.WithEquality(store.Strict[bool]))
	s.source = store.Combine(s.selectedChainID, s.isSubmitting)
	return s, nil
}

// SelectedChainID returns the destination chain
func (s *WithdrawalStore) SelectedChainID() types.ChainID {
	return s.selectedChainID.Get()
}

// SetSelectedChainID switches the destination chain. Chains outside the
// allowed list are ignored and false is returned.
func (s *WithdrawalStore) SetSelectedChainID(id types.ChainID) bool {
	if !s.cfg.allows(id) {
		s.logger.Debug("chain not allowed", zap.Stringer("chain", id))
		return false
	}
	if !s.selectedChainID.Set(id) {
		return false
	}
	if s.writer != nil {
		s.writer.Write(s.key, id)
	}
	return true
}

// IsSubmitting reports whether the withdrawal is being submitted
func (s *WithdrawalStore) IsSubmitting() bool {
	return s.isSubmitting.Get()
}

// SetIsSubmitting flags the withdrawal as being submitted
func (s *WithdrawalStore) SetIsSubmitting(v bool) {
	s.isSubmitting.Set(v)
}

// Watch implements store.Source
func (s *WithdrawalStore) Watch(fn func()) func() {
	return s.source.Watch(fn)
}

// Close flushes a pending chain write
func (s *WithdrawalStore) Close(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close(ctx)
}
