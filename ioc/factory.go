package ioc

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// factory owns at most one instance of an implementation.
//
// The first successful get runs newFn; every later get returns the cached
// value, which may be nil. If newFn panics the panic reaches the caller and
// the factory stays unbuilt.
type factory struct {
	newFn func() any
	impl  reflect.Type

	mu   sync.Mutex
	done atomic.Bool
	inst any
}

func newFactory[T Service](c Constructor[T]) *factory {
	f := &factory{newFn: func() any { return c.NewInstance() }}
	if im, ok := any(c).(Implementation); ok {
		f.impl = im.Implementation()
	}
	return f
}

func (f *factory) get() any {
	if f.done.Load() {
		return f.inst
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.done.Load() {
		f.inst = f.newFn()
		f.done.Store(true)
	}
	return f.inst
}

func (f *factory) built() bool { return f.done.Load() }

// binding is the registered winner for one contract.
type binding struct {
	contract reflect.Type
	priority int
	factory  *factory

	// value caches the outcome of get-or-create plus the fallback chain.
	mu       sync.Mutex
	resolved atomic.Bool
	value    any
}

func (b *binding) instance(fallback func(*binding) any) any {
	if b.resolved.Load() {
		return b.value
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.resolved.Load() {
		return b.value
	}
	v := b.factory.get()
	if isNil(v) {
		v = fallback(b)
	}
	b.value = v
	b.resolved.Store(true)
	return v
}
