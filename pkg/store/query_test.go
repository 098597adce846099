package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestQueryServesFreshCache(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	chain := New(1)

	var calls atomic.Int32
	q := NewQuery(QueryConfig[int, string]{
		Name: "tokens",
		Fetcher: func(_ context.Context, chainID int) (string, error) {
			calls.Add(1)
			return fmt.Sprintf("token-%d", chainID), nil
		},
		Params:    chain.Get,
		Deps:      []Source{chain},
		CacheTime: time.Hour,
		StaleTime: time.Minute,
		Logger:    zap.NewNop(),
		Now:       clock.Now,
	})
	defer q.Close()

	data, err := q.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", data)

	chain.Set(2)
	data, err = q.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", data)

	clock.Advance(30 * time.Second)
	chain.Set(1)
	assert.Equal(t, StatusSuccess, q.Status())
	assert.Equal(t, "token-1", q.Get())

	data, err = q.Fetch(ctx, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "token-1", data)
	assert.Equal(t, int32(2), calls.Load())

	_, err = q.Fetch(ctx, FetchOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueryRefetchesWhenStale(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	var calls atomic.Int32
	q := NewQuery(QueryConfig[string, int32]{
		Fetcher: func(context.Context, string) (int32, error) {
			return calls.Add(1), nil
		},
		Params:    func() string { return "static" },
		StaleTime: 15 * time.Second,
		CacheTime: 30 * time.Second,
		Now:       clock.Now,
	})
	defer q.Close()

	_, err := q.Await(ctx)
	require.NoError(t, err)
	assert.False(t, q.IsStale())

	clock.Advance(20 * time.Second)
	assert.True(t, q.IsStale())
	assert.False(t, q.IsDataExpired())

	data, err := q.Fetch(ctx, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), data)

	clock.Advance(31 * time.Second)
	assert.True(t, q.IsDataExpired())
	_, ok := q.GetData()
	assert.False(t, ok)
}

func TestQueryDedupesConcurrentFetches(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			calls.Add(1)
			<-release
			return "done", nil
		},
		Params: func() string { return "key" },
	})
	defer q.Close()
	assert.Equal(t, StatusLoading, q.Status())

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = q.Fetch(context.Background(), FetchOptions{Force: true})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "done", r)
	}
}

func TestQueryAbortsStaleFetchOnParamChange(t *testing.T) {
	amount := New("1")
	started := make(chan struct{})
	cancelled := make(chan struct{})

	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(ctx context.Context, a string) (string, error) {
			if a == "1" {
				close(started)
				<-ctx.Done()
				close(cancelled)
				return "", ctx.Err()
			}
			return "quote-" + a, nil
		},
		Params: amount.Get,
		Deps:   []Source{amount},
	})
	defer q.Close()

	<-started
	amount.Set("2")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("stale fetch was not cancelled")
	}

	data, err := q.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quote-2", data)
	assert.Equal(t, StatusSuccess, q.Status())
}

func TestQueryDiscardsLateResult(t *testing.T) {
	amount := New("1")
	release := make(chan struct{})
	finished := make(chan struct{})

	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(_ context.Context, a string) (string, error) {
			if a == "1" {
				defer close(finished)
				<-release
				return "late", nil
			}
			return "fresh", nil
		},
		Params: amount.Get,
		Deps:   []Source{amount},
	})
	defer q.Close()

	amount.Set("2")
	data, err := q.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", data)

	close(release)
	<-finished
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, "fresh", q.Get())
	assert.Equal(t, StatusSuccess, q.Status())
}

func TestQueryEnabledPredicate(t *testing.T) {
	enabled := New(false)
	var calls atomic.Int32

	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "limit", nil
		},
		Params:  func() string { return "p" },
		Enabled: enabled.Get,
		Deps:    []Source{enabled},
	})
	defer q.Close()

	assert.Equal(t, StatusIdle, q.Status())
	assert.Equal(t, int32(0), calls.Load())

	enabled.Set(true)
	data, err := q.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "limit", data)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueryErrorState(t *testing.T) {
	boom := errors.New("boom")
	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			return "", boom
		},
		Params:     func() string { return "p" },
		MaxRetries: 0,
	})
	defer q.Close()

	_, err := q.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, q.Status())
	assert.ErrorIs(t, q.Err(), boom)

	q.Reset()
	assert.Equal(t, StatusIdle, q.Status())
	assert.NoError(t, q.Err())
}

func TestQueryKeepPreviousData(t *testing.T) {
	chain := New(1)
	release := make(chan struct{})

	q := NewQuery(QueryConfig[int, string]{
		Fetcher: func(_ context.Context, c int) (string, error) {
			if c == 2 {
				<-release
			}
			return fmt.Sprintf("gas-%d", c), nil
		},
		Params:           chain.Get,
		Deps:             []Source{chain},
		KeepPreviousData: true,
	})
	defer q.Close()

	_, err := q.Await(context.Background())
	require.NoError(t, err)

	chain.Set(2)
	assert.Equal(t, StatusLoading, q.Status())
	data, ok := q.GetData()
	assert.True(t, ok)
	assert.Equal(t, "gas-1", data)

	close(release)
	data, err = q.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gas-2", data)
}

func TestQueryFetchAfterClose(t *testing.T) {
	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) { return "x", nil },
		Params:  func() string { return "p" },
	})
	q.Close()

	_, err := q.Fetch(context.Background(), FetchOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTransformed(t *testing.T) {
	fetch := Transformed(
		func(_ context.Context, n int) (int, error) { return n * 2, nil },
		func(raw int, n int) string { return fmt.Sprintf("%d->%d", n, raw) },
	)

	out, err := fetch(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, "21->42", out)
}

func TestDefaultRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultRetryDelay(0))
	assert.Equal(t, 10*time.Second, DefaultRetryDelay(1))
	assert.Equal(t, 160*time.Second, DefaultRetryDelay(5))
	assert.Equal(t, 5*time.Minute, DefaultRetryDelay(6))
	assert.Equal(t, 5*time.Minute, DefaultRetryDelay(50))
}

func fixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func TestQueryRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(QueryConfig[string, string]{
		Name: "meteorology",
		Fetcher: func(context.Context, string) (string, error) {
			if calls.Add(1) <= 2 {
				return "", errors.New("oracle unavailable")
			}
			return "suggestions", nil
		},
		Params:     func() string { return "8453" },
		MaxRetries: 3,
		RetryDelay: fixedDelay(10 * time.Millisecond),
	})
	defer q.Close()
	unwatch := q.Watch(func() {})
	defer unwatch()

	require.Eventually(t, func() bool {
		return q.Status() == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "suggestions", q.Get())
	assert.NoError(t, q.Err())
}

func TestQueryRetriesStopAtMax(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "", boom
		},
		Params:     func() string { return "p" },
		MaxRetries: 2,
		RetryDelay: fixedDelay(10 * time.Millisecond),
	})
	defer q.Close()
	unwatch := q.Watch(func() {})
	defer unwatch()

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load(), "one fetch plus MaxRetries retries")
	assert.Equal(t, StatusError, q.Status())
	assert.ErrorIs(t, q.Err(), boom)
}

func TestQueryRetryNeedsWatcher(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "", errors.New("boom")
		},
		Params:     func() string { return "p" },
		MaxRetries: 3,
		RetryDelay: fixedDelay(10 * time.Millisecond),
	})
	defer q.Close()

	_, err := q.Await(context.Background())
	require.Error(t, err)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func newAutoRefetchQuery(calls *atomic.Int32) *Query[string, int32] {
	return NewQuery(QueryConfig[string, int32]{
		Name: "meteorology",
		Fetcher: func(context.Context, string) (int32, error) {
			return calls.Add(1), nil
		},
		Params:      func() string { return "1" },
		StaleTime:   15 * time.Millisecond,
		AutoRefetch: true,
	})
}

func TestQueryAutoRefetchWhileWatched(t *testing.T) {
	var calls atomic.Int32
	q := newAutoRefetchQuery(&calls)
	defer q.Close()

	var updates atomic.Int32
	unwatch := q.Watch(func() { updates.Add(1) })

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
	assert.Positive(t, updates.Load())

	unwatch()
	time.Sleep(30 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "no refetch without watchers")
}

func TestQueryAutoRefetchStopsOnClose(t *testing.T) {
	var calls atomic.Int32
	q := newAutoRefetchQuery(&calls)
	unwatch := q.Watch(func() {})
	defer unwatch()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	q.Close()
	time.Sleep(30 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestQueryFetchWhileDisabled(t *testing.T) {
	ctx := context.Background()
	enabled := New(false)
	var calls atomic.Int32

	q := NewQuery(QueryConfig[string, string]{
		Fetcher: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "limit", nil
		},
		Params:  func() string { return "p" },
		Enabled: enabled.Get,
		Deps:    []Source{enabled},
	})
	defer q.Close()

	data, err := q.Fetch(ctx, FetchOptions{Force: true})
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, int32(0), calls.Load())

	enabled.Set(true)
	_, err = q.Await(ctx)
	require.NoError(t, err)

	enabled.Set(false)
	data, err = q.Fetch(ctx, FetchOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, "limit", data, "cached data is still served")
	assert.Equal(t, int32(1), calls.Load())
}
