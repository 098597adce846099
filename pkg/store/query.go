package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"funding-quotes/pkg/metrics"
)

var (
	// ErrClosed is returned by Fetch after Close
	ErrClosed = errors.New("store: query closed")

	errSuperseded = errors.New("store: fetch superseded")
)

// Status is the lifecycle state of a query for its current params
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	DefaultCacheTime  = 7 * 24 * time.Hour
	DefaultStaleTime  = 2 * time.Minute
	DefaultMaxRetries = 5

	baseRetryDelay = 5 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// Fetcher loads data for params and must return promptly once ctx is cancelled
type Fetcher[P, D any] func(ctx context.Context, params P) (D, error)

// Transformed composes a raw fetcher with a pure transform of its result
func Transformed[P, R, D any](fetch Fetcher[P, R], transform func(raw R, params P) D) Fetcher[P, D] {
	return func(ctx context.Context, params P) (D, error) {
		raw, err := fetch(ctx, params)
		if err != nil {
			var zero D
			return zero, err
		}
		return transform(raw, params), nil
	}
}

// DefaultRetryDelay backs off from 5s, doubling up to 5m
func DefaultRetryDelay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if retry >= 6 {
		return maxRetryDelay
	}
	d := baseRetryDelay << retry
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// QueryConfig describes a query store
type QueryConfig[P, D any] struct {
	Name    string
	Fetcher Fetcher[P, D]
	// Params is re-evaluated whenever a dependency notifies
	Params func() P
	// Key defaults to the JSON encoding of the params
	Key     func(P) string
	Enabled func() bool
	Deps    []Source

	CacheTime        time.Duration
	StaleTime        time.Duration
	KeepPreviousData bool
	// AutoRefetch refetches the current key when it goes stale, while watched
	AutoRefetch bool
	MaxRetries  int
	RetryDelay  func(retry int) time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// FetchOptions tune a manual fetch
type FetchOptions struct {
	// Force bypasses a fresh cache entry. An in-flight fetch for the same
	// params is still joined.
	Force bool
}

type entry[D any] struct {
	data      D
	hasData   bool
	fetchedAt time.Time
	err       error
	failedAt  time.Time
	retries   int
}

type flight[P, D any] struct {
	key    string
	sfKey  string
	params P
	ctx    context.Context
	cancel context.CancelFunc

	once sync.Once
	data D
	err  error
	run  func() (any, error)
}

// Query manages the fetch lifecycle of a single async source: params are
// derived from other stores, results are cached per params key, and a change
// of params cancels the fetch for the previous key.
type Query[P, D any] struct {
	cfg   QueryConfig[P, D]
	log   *zap.Logger
	group singleflight.Group

	refreshMu sync.Mutex

	mu      sync.Mutex
	started bool
	params  P
	key     string
	enabled bool
	status  Status
	err     error
	seq     uint64
	cache   map[string]*entry[D]
	flights map[string]*flight[P, D]
	last    *entry[D]
	timer   *time.Timer
	closed  bool

	subs    listeners
	unwatch []func()
}

// NewQuery builds a query store, subscribes it to its dependencies and
// starts the first fetch when enabled
func NewQuery[P, D any](cfg QueryConfig[P, D]) *Query[P, D] {
	if cfg.Fetcher == nil || cfg.Params == nil {
		panic(fmt.Sprintf("store: query %q needs a fetcher and params", cfg.Name))
	}
	if cfg.Name == "" {
		cfg.Name = "query"
	}
	if cfg.Key == nil {
		cfg.Key = jsonKey[P]
	}
	if cfg.CacheTime <= 0 {
		cfg.CacheTime = DefaultCacheTime
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == nil {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	q := &Query[P, D]{
		cfg:     cfg,
		log:     log.With(zap.String("store", cfg.Name)),
		status:  StatusIdle,
		cache:   make(map[string]*entry[D]),
		flights: make(map[string]*flight[P, D]),
	}
	for _, dep := range cfg.Deps {
		q.unwatch = append(q.unwatch, dep.Watch(q.refresh))
	}
	q.refresh()
	return q
}

func jsonKey[P any](params P) string {
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%#v", params)
	}
	return string(b)
}

// refresh re-resolves params and fetches when the current key has no fresh data
func (q *Query[P, D]) refresh() {
	q.refreshMu.Lock()

	params := q.cfg.Params()
	key := q.cfg.Key(params)
	enabled := q.cfg.Enabled == nil || q.cfg.Enabled()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.refreshMu.Unlock()
		return
	}

	keyChanged := !q.started || key != q.key
	changed := keyChanged || enabled != q.enabled
	if q.started && keyChanged {
		q.abortLocked(q.key)
		q.stopTimerLocked()
	}
	q.started = true
	q.params, q.key, q.enabled = params, key, enabled

	var f *flight[P, D]
	if enabled {
		if q.shouldFetchLocked(key, false) {
			f = q.launchLocked(key, params)
		} else if keyChanged {
			if e := q.cache[key]; e != nil && e.hasData {
				metrics.QueryCacheHits.WithLabelValues(q.cfg.Name).Inc()
			}
		}
	}
	q.syncStatusLocked()
	q.mu.Unlock()
	q.refreshMu.Unlock()

	// Listeners see the loading state before the flight can settle it
	if changed || f != nil {
		q.subs.notify()
	}
	if f != nil {
		q.group.DoChan(f.sfKey, f.run)
	}
}

func (q *Query[P, D]) shouldFetchLocked(key string, force bool) bool {
	if _, ok := q.flights[key]; ok {
		return false
	}
	if force {
		return true
	}

	e := q.cache[key]
	if e == nil {
		return true
	}

	now := q.cfg.Now()
	if e.err != nil && now.Sub(e.failedAt) < q.cfg.RetryDelay(e.retries-1) {
		return false
	}
	if !e.hasData {
		return true
	}
	return now.Sub(e.fetchedAt) >= q.cfg.StaleTime
}

func (q *Query[P, D]) launchLocked(key string, params P) *flight[P, D] {
	ctx, cancel := context.WithCancel(context.Background())
	q.seq++
	f := &flight[P, D]{
		key:    key,
		sfKey:  key + "#" + strconv.FormatUint(q.seq, 10),
		params: params,
		ctx:    ctx,
		cancel: cancel,
	}
	f.run = func() (any, error) {
		f.once.Do(func() {
			f.data, f.err = q.execute(f)
		})
		return f.data, f.err
	}
	q.flights[key] = f
	q.log.Debug("fetch started", zap.String("key", key))
	return f
}

func (q *Query[P, D]) execute(f *flight[P, D]) (D, error) {
	start := time.Now()
	data, err := q.cfg.Fetcher(f.ctx, f.params)
	metrics.QueryLatency.WithLabelValues(q.cfg.Name).Observe(time.Since(start).Seconds())

	q.mu.Lock()
	current := q.flights[f.key] == f
	if current {
		delete(q.flights, f.key)
	}
	if !current || f.ctx.Err() != nil || q.closed {
		q.mu.Unlock()
		f.cancel()
		q.log.Debug("discarding superseded result", zap.String("key", f.key))
		var zero D
		return zero, errSuperseded
	}

	now := q.cfg.Now()
	e := q.cache[f.key]
	if e == nil {
		e = &entry[D]{}
		q.cache[f.key] = e
	}

	if err != nil {
		e.err = err
		e.failedAt = now
		e.retries++
		if e.retries <= q.cfg.MaxRetries {
			q.setTimerLocked(q.cfg.RetryDelay(e.retries-1), f.key)
		}
	} else {
		e.data, e.hasData, e.fetchedAt = data, true, now
		e.err, e.retries = nil, 0
		q.last = e
		q.pruneLocked(now)
		if q.cfg.AutoRefetch {
			q.setTimerLocked(q.cfg.StaleTime, f.key)
		}
	}
	q.syncStatusLocked()
	q.mu.Unlock()
	f.cancel()

	if err != nil {
		metrics.QueryFetches.WithLabelValues(q.cfg.Name, "error").Inc()
		q.log.Warn("fetch failed", zap.String("key", f.key), zap.Error(err))
	} else {
		metrics.QueryFetches.WithLabelValues(q.cfg.Name, "success").Inc()
		q.log.Debug("fetch succeeded", zap.String("key", f.key), zap.Duration("elapsed", time.Since(start)))
	}

	q.subs.notify()
	return data, err
}

func (q *Query[P, D]) abortLocked(key string) {
	f, ok := q.flights[key]
	if !ok {
		return
	}
	f.cancel()
	delete(q.flights, key)
	metrics.QueryAborts.WithLabelValues(q.cfg.Name).Inc()
	q.log.Debug("fetch aborted", zap.String("key", key))
}

func (q *Query[P, D]) syncStatusLocked() {
	if _, ok := q.flights[q.key]; ok {
		q.status = StatusLoading
		return
	}

	e := q.cache[q.key]
	switch {
	case e != nil && e.err != nil:
		q.status, q.err = StatusError, e.err
	case e != nil && e.hasData:
		q.status, q.err = StatusSuccess, nil
	default:
		q.status, q.err = StatusIdle, nil
	}
}

func (q *Query[P, D]) pruneLocked(now time.Time) {
	for key, e := range q.cache {
		if key == q.key {
			continue
		}
		if now.Sub(e.fetchedAt) > q.cfg.CacheTime && now.Sub(e.failedAt) > q.cfg.CacheTime {
			delete(q.cache, key)
		}
	}
}

func (q *Query[P, D]) setTimerLocked(d time.Duration, key string) {
	q.stopTimerLocked()
	q.timer = time.AfterFunc(d, func() { q.refetchIfCurrent(key) })
}

func (q *Query[P, D]) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// refetchIfCurrent backs retries and stale refetches. Nobody watching means
// nobody needs fresh data.
func (q *Query[P, D]) refetchIfCurrent(key string) {
	if q.subs.len() == 0 {
		return
	}

	q.mu.Lock()
	if q.closed || q.key != key || !q.enabled || !q.shouldFetchLocked(key, true) {
		q.mu.Unlock()
		return
	}
	f := q.launchLocked(key, q.params)
	q.syncStatusLocked()
	q.mu.Unlock()

	q.group.DoChan(f.sfKey, f.run)
	q.subs.notify()
}

// Fetch returns data for the current params, from cache when fresh. While
// the Enabled predicate is false it only returns cached data.
func (q *Query[P, D]) Fetch(ctx context.Context, opts FetchOptions) (D, error) {
	var zero D

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return zero, ErrClosed
	}

	key := q.key
	f := q.flights[key]
	// A disabled query serves what it has and never launches
	if f == nil && !q.enabled {
		e := q.cache[key]
		q.mu.Unlock()
		if e != nil && e.hasData {
			return e.data, nil
		}
		return zero, nil
	}
	if f == nil && !opts.Force && !q.shouldFetchLocked(key, false) {
		e := q.cache[key]
		q.mu.Unlock()
		if e.hasData {
			return e.data, nil
		}
		return zero, e.err
	}

	launched := false
	if f == nil {
		f = q.launchLocked(key, q.params)
		q.syncStatusLocked()
		launched = true
	}
	q.mu.Unlock()

	if launched {
		q.subs.notify()
	}
	return q.wait(ctx, f)
}

func (q *Query[P, D]) wait(ctx context.Context, f *flight[P, D]) (D, error) {
	var zero D
	ch := q.group.DoChan(f.sfKey, f.run)
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		data, _ := res.Val.(D)
		return data, nil
	}
}

// Await blocks until no fetch is in flight for the current params, then
// returns the current data and error
func (q *Query[P, D]) Await(ctx context.Context) (D, error) {
	for {
		q.mu.Lock()
		f := q.flights[q.key]
		q.mu.Unlock()
		if f == nil {
			break
		}
		if _, err := q.wait(ctx, f); err != nil && ctx.Err() != nil {
			var zero D
			return zero, ctx.Err()
		}
	}

	data, _ := q.GetData()
	return data, q.Err()
}

// GetData returns cached data for the current params. With KeepPreviousData
// the last successful payload is returned while the current key has none.
func (q *Query[P, D]) GetData() (D, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.cache[q.key]
	if e != nil && e.hasData && (q.cfg.KeepPreviousData || q.cfg.Now().Sub(e.fetchedAt) < q.cfg.CacheTime) {
		return e.data, true
	}
	if q.cfg.KeepPreviousData && q.last != nil && q.last.hasData {
		return q.last.data, true
	}

	var zero D
	return zero, false
}

// Get returns the current data or the zero value
func (q *Query[P, D]) Get() D {
	data, _ := q.GetData()
	return data
}

// Status returns the lifecycle state for the current params
func (q *Query[P, D]) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// Err returns the last fetch error for the current params
func (q *Query[P, D]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Params returns the params the store is currently keyed by
func (q *Query[P, D]) Params() P {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.params
}

// Key returns the current cache key
func (q *Query[P, D]) Key() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Enabled reports whether the store is allowed to fetch
func (q *Query[P, D]) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// IsStale reports whether the current entry is missing or older than the stale time
func (q *Query[P, D]) IsStale() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.cache[q.key]
	return e == nil || !e.hasData || q.cfg.Now().Sub(e.fetchedAt) >= q.cfg.StaleTime
}

// IsDataExpired reports whether the current entry is missing or older than the cache time
func (q *Query[P, D]) IsDataExpired() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.cache[q.key]
	return e == nil || !e.hasData || q.cfg.Now().Sub(e.fetchedAt) >= q.cfg.CacheTime
}

// Watch calls fn after every status or data change
func (q *Query[P, D]) Watch(fn func()) func() {
	return q.subs.add(fn)
}

// Subscribe calls fn with the current data after every change
func (q *Query[P, D]) Subscribe(fn func(D)) func() {
	return q.subs.add(func() { fn(q.Get()) })
}

// Reset drops every cache entry and cancels in-flight fetches
func (q *Query[P, D]) Reset() {
	q.mu.Lock()
	for key := range q.flights {
		q.abortLocked(key)
	}
	q.cache = make(map[string]*entry[D])
	q.last = nil
	q.stopTimerLocked()
	q.syncStatusLocked()
	q.mu.Unlock()

	q.subs.notify()
}

// Close detaches from dependencies and cancels in-flight fetches
func (q *Query[P, D]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for key := range q.flights {
		q.abortLocked(key)
	}
	q.stopTimerLocked()
	q.mu.Unlock()

	for _, fn := range q.unwatch {
		fn()
	}
}
