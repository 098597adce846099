package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSuppressesEqualWrites(t *testing.T) {
	s := New("a", WithEquality(Strict[string]))

	var seen []string
	s.Subscribe(func(v string) { seen = append(seen, v) })

	assert.True(t, s.Set("b"))
	assert.False(t, s.Set("b"))
	assert.True(t, s.Set("c"))
	assert.Equal(t, []string{"b", "c"}, seen)
}

func TestStoreDeepEqualityByDefault(t *testing.T) {
	type pair struct{ A, B int }
	s := New(&pair{1, 2})

	calls := 0
	s.Watch(func() { calls++ })

	assert.False(t, s.Set(&pair{1, 2}))
	assert.True(t, s.Set(&pair{1, 3}))
	assert.Equal(t, 1, calls)
}

func TestStoreUpdateAndUnwatch(t *testing.T) {
	s := New(1)
	calls := 0
	unwatch := s.Watch(func() { calls++ })

	s.Update(func(v int) int { return v + 1 })
	assert.Equal(t, 2, s.Get())

	unwatch()
	unwatch()
	s.Set(5)
	assert.Equal(t, 1, calls)
}

func TestDerivedRecomputesOnDependencyChange(t *testing.T) {
	a := New(2)
	b := New(3)

	computes := 0
	sum := Derive(func() int {
		computes++
		return a.Get() + b.Get()
	}, []Source{a, b})
	assert.Equal(t, 5, sum.Get())

	notified := 0
	sum.Watch(func() { notified++ })

	a.Set(10)
	assert.Equal(t, 13, sum.Get())

	b.Set(3)
	assert.Equal(t, 2, computes)

	a.Set(3)
	b.Set(10)
	assert.Equal(t, 13, sum.Get())
	assert.Equal(t, 3, notified)
	assert.Equal(t, 4, computes)

	sum.Close()
	a.Set(100)
	assert.Equal(t, 13, sum.Get())
}

func TestDerivedChain(t *testing.T) {
	base := New("0.5")
	upper := Derive(func() string { return base.Get() + "!" }, []Source{base})
	final := Derive(func() string { return "[" + upper.Get() + "]" }, []Source{upper})

	base.Set("2")
	assert.Equal(t, "[2!]", final.Get())
}

func TestCombine(t *testing.T) {
	a, b := New(1), New(2)
	calls := 0
	unwatch := Combine(a, b).Watch(func() { calls++ })

	a.Set(2)
	b.Set(3)
	unwatch()
	a.Set(4)
	assert.Equal(t, 2, calls)
}
