package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThrottledWriter limits writes to a Storage to one per interval. Writes
// arriving inside the window are coalesced and the latest value per key is
// flushed when the window ends.
type ThrottledWriter struct {
	storage Storage
	limiter *rate.Limiter
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]interface{}
	timer   *time.Timer
	closed  bool
}

// NewThrottledWriter wraps storage
func NewThrottledWriter(storage Storage, interval time.Duration, logger *zap.Logger) *ThrottledWriter {
	return &ThrottledWriter{
		storage: storage,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
		pending: make(map[string]interface{}),
	}
}

// Write persists value now when the window is open, otherwise schedules it
func (w *ThrottledWriter) Write(key string, value interface{}) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending[key] = value
	if w.timer != nil {
		w.mu.Unlock()
		return
	}

	delay := w.limiter.Reserve().Delay()
	if delay > 0 {
		w.timer = time.AfterFunc(delay, w.flushScheduled)
		w.mu.Unlock()
		return
	}

	items := w.takeLocked()
	w.mu.Unlock()
	w.write(items)
}

func (w *ThrottledWriter) takeLocked() map[string]interface{} {
	items := w.pending
	w.pending = make(map[string]interface{})
	return items
}

func (w *ThrottledWriter) flushScheduled() {
	w.mu.Lock()
	w.timer = nil
	items := w.takeLocked()
	w.mu.Unlock()
	w.write(items)
}

func (w *ThrottledWriter) write(items map[string]interface{}) {
	for key, value := range items {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.storage.Set(ctx, key, value); err != nil {
			w.logger.Warn("failed to persist value", zap.String("key", key), zap.Error(err))
		}
		cancel()
	}
}

// Flush writes anything pending immediately
func (w *ThrottledWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	items := w.takeLocked()
	w.mu.Unlock()

	for key, value := range items {
		if err := w.storage.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to flush '%s': %w", key, err)
		}
	}
	return nil
}

// Close flushes pending writes and rejects later ones
func (w *ThrottledWriter) Close(ctx context.Context) error {
	err := w.Flush(ctx)
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return err
}
