package store

import "sync"

// Derived is a read-only store whose value is a pure function of other
// sources. It recomputes synchronously whenever a dependency notifies.
type Derived[T any] struct {
	value   *Store[T]
	compute func() T

	mu      sync.Mutex
	unwatch []func()
}

// Derive builds a derived store and computes its first value immediately
func Derive[T any](compute func() T, deps []Source, opts ...Option[T]) *Derived[T] {
	d := &Derived[T]{
		value:   New(compute(), opts...),
		compute: compute,
	}
	for _, dep := range deps {
		d.unwatch = append(d.unwatch, dep.Watch(d.Refresh))
	}
	return d
}

// Refresh recomputes the value. The lock guarantees the committed value was
// computed from dependency values no older than the last notification.
func (d *Derived[T]) Refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value.Set(d.compute())
}

// Get returns the current derived value
func (d *Derived[T]) Get() T {
	return d.value.Get()
}

// Watch calls fn after every change of the derived value
func (d *Derived[T]) Watch(fn func()) func() {
	return d.value.Watch(fn)
}

// Subscribe calls fn with the new value after every change
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.value.Subscribe(fn)
}

// Close detaches the store from its dependencies
func (d *Derived[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fn := range d.unwatch {
		fn()
	}
	d.unwatch = nil
}

// Combine returns a Source that notifies when any of sources does
func Combine(sources ...Source) Source {
	return combined(sources)
}

type combined []Source

func (c combined) Watch(fn func()) func() {
	unwatch := make([]func(), 0, len(c))
	for _, s := range c {
		unwatch = append(unwatch, s.Watch(fn))
	}
	return func() {
		for _, u := range unwatch {
			u()
		}
	}
}
