// Package store provides the observable containers the funding flows are
// composed from: plain value stores, derived stores recomputed from other
// stores, and query stores that own an asynchronous fetch lifecycle.
package store

import (
	"reflect"
	"sync"
)

// Source is anything that notifies listeners when its value changes
type Source interface {
	Watch(fn func()) (unwatch func())
}

// Readable is a Source whose current value can be read synchronously
type Readable[T any] interface {
	Source
	Get() T
}

// EqualityFunc decides whether a write is a no-op
type EqualityFunc[T any] func(a, b T) bool

// Strict compares with ==
func Strict[T comparable](a, b T) bool {
	return a == b
}

// Deep compares with reflect.DeepEqual
func Deep[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

type listener struct {
	id int
	fn func()
}

// listeners is a registration-ordered set of callbacks
type listeners struct {
	mu   sync.Mutex
	next int
	fns  []listener
}

func (l *listeners) add(fn func()) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.fns = append(l.fns, listener{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, ln := range l.fns {
				if ln.id == id {
					l.fns = append(l.fns[:i:i], l.fns[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listeners) notify() {
	l.mu.Lock()
	snapshot := make([]listener, len(l.fns))
	copy(snapshot, l.fns)
	l.mu.Unlock()

	for _, ln := range snapshot {
		ln.fn()
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// Store is a mutable observable value
type Store[T any] struct {
	mu    sync.RWMutex
	value T
	equal EqualityFunc[T]
	subs  listeners
}

// Option configures a Store or Derived
type Option[T any] func(*Store[T])

// WithEquality overrides the default deep equality
func WithEquality[T any](eq EqualityFunc[T]) Option[T] {
	return func(s *Store[T]) {
		s.equal = eq
	}
}

// New creates a store holding initial
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{value: initial, equal: Deep[T]}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current value
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v and notifies listeners. Writes equal to the current value are
// dropped and Set reports false.
func (s *Store[T]) Set(v T) bool {
	s.mu.Lock()
	if s.equal(s.value, v) {
		s.mu.Unlock()
		return false
	}
	s.value = v
	s.mu.Unlock()

	s.subs.notify()
	return true
}

// Update applies fn to the current value atomically
func (s *Store[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	next := fn(s.value)
	if s.equal(s.value, next) {
		s.mu.Unlock()
		return false
	}
	s.value = next
	s.mu.Unlock()

	s.subs.notify()
	return true
}

// Subscribe calls fn with the new value after every change
func (s *Store[T]) Subscribe(fn func(T)) func() {
	return s.subs.add(func() { fn(s.Get()) })
}

// Watch calls fn after every change
func (s *Store[T]) Watch(fn func()) func() {
	return s.subs.add(fn)
}
