package funding

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ExecuteRefreshSchedule calls the handler once per configured delay,
// measured from the call. Handler errors are logged and do not stop the
// schedule. It returns ctx.Err() when cancelled before finishing.
func ExecuteRefreshSchedule(ctx context.Context, cfg *RefreshConfig, logger *zap.Logger) error {
	if cfg == nil || cfg.Handler == nil || len(cfg.Delays) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	delays := append([]time.Duration(nil), cfg.Delays...)
	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })

	start := time.Now()
	for i, d := range delays {
		timer := time.NewTimer(time.Until(start.Add(d)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := cfg.Handler(ctx); err != nil {
			logger.Warn("refresh handler failed", zap.Int("attempt", i+1), zap.Duration("delay", d), zap.Error(err))
		}
	}
	return nil
}
