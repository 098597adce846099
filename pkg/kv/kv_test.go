package kv

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewFileStorage(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	var chainID int64
	err = s.Get(ctx, "withdrawal:selectedChainId", &chainID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "withdrawal:selectedChainId", int64(8453)))

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Get(ctx, "withdrawal:selectedChainId", &chainID))
	assert.Equal(t, int64(8453), chainID)

	require.NoError(t, reopened.Delete(ctx, "withdrawal:selectedChainId"))
	require.NoError(t, reopened.Delete(ctx, "missing"))
	assert.ErrorIs(t, reopened.Get(ctx, "withdrawal:selectedChainId", &chainID), ErrNotFound)
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedisStorage(ctx, RedisOptions{Addr: mr.Addr(), Prefix: "funding:"}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "chain", 42161))
	assert.True(t, mr.Exists("funding:chain"))

	var got int
	require.NoError(t, s.Get(ctx, "chain", &got))
	assert.Equal(t, 42161, got)

	require.NoError(t, s.Delete(ctx, "chain"))
	assert.ErrorIs(t, s.Get(ctx, "chain", &got), ErrNotFound)
}

func TestRedisStorageTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageFromClient(client, "", time.Minute, zap.NewNop())
	defer s.Close()

	require.NoError(t, s.Set(ctx, "k", "v"))
	mr.FastForward(2 * time.Minute)

	var got string
	assert.ErrorIs(t, s.Get(ctx, "k", &got), ErrNotFound)
}

type countingStorage struct {
	mu     sync.Mutex
	sets   int
	values map[string]interface{}
}

func (c *countingStorage) Set(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.values[key] = value
	return nil
}

func (c *countingStorage) Get(context.Context, string, interface{}) error { return ErrNotFound }
func (c *countingStorage) Delete(context.Context, string) error           { return nil }
func (c *countingStorage) Close() error                                   { return nil }

func (c *countingStorage) snapshot() (int, interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets, c.values["k"]
}

func TestThrottledWriterCoalesces(t *testing.T) {
	storage := &countingStorage{values: make(map[string]interface{})}
	w := NewThrottledWriter(storage, 100*time.Millisecond, zap.NewNop())

	w.Write("k", 1)
	sets, v := storage.snapshot()
	assert.Equal(t, 1, sets)
	assert.Equal(t, 1, v)

	w.Write("k", 2)
	w.Write("k", 3)
	sets, _ = storage.snapshot()
	assert.Equal(t, 1, sets)

	require.Eventually(t, func() bool {
		sets, v := storage.snapshot()
		return sets == 2 && v == 3
	}, time.Second, 10*time.Millisecond)
}

func TestThrottledWriterFlushOnClose(t *testing.T) {
	storage := &countingStorage{values: make(map[string]interface{})}
	w := NewThrottledWriter(storage, time.Hour, zap.NewNop())

	w.Write("k", "a")
	w.Write("k", "b")
	require.NoError(t, w.Close(context.Background()))

	sets, v := storage.snapshot()
	assert.Equal(t, 2, sets)
	assert.Equal(t, "b", v)

	w.Write("k", "c")
	_, v = storage.snapshot()
	assert.Equal(t, "b", v)
}
