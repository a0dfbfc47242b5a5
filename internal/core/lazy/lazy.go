// Package lazy provides the process-wide singleton primitives the rest of
// the library uses instead of package-level vars with implicit
// initialization order: a lazily-constructed cell (Of), an
// explicitly-injected cell (Provided), and a small named-service locator
// (Locator). These mirror LazyGlobal<T>, Global<T> and Locator<T> from the
// original design.
package lazy

import (
	"fmt"
	"sync"
)

// cell holds one lazily-initialized value of type T, keyed by nothing but
// T's identity — cellFor hands out one cell per distinct T.
type cell[T any] struct {
	once  sync.Once
	value *T
}

// Of returns the process-wide singleton of T, constructing it with new(T)
// on first use. This is the direct analogue of LazyGlobal<T>->.
func Of[T any]() *T {
	c := cellFor[T]()
	c.once.Do(func() {
		c.value = new(T)
	})
	return c.value
}

// OfFunc is like Of but constructs the value with the supplied factory
// instead of new(T), for singletons that need non-zero initialization.
func OfFunc[T any](build func() *T) *T {
	c := cellFor[T]()
	c.once.Do(func() {
		c.value = build()
	})
	return c.value
}

// cellHolder exists purely so each generic instantiation of cellFor gets
// its own entry in holders: Go has no generic package-level variables, so
// cellFor keys the shared map by a typed nil *cellHolder[T], which compares
// unequal for every distinct T.
type cellHolder[T any] struct {
	c cell[T]
}

var holders sync.Map

func cellFor[T any]() *cell[T] {
	var key *cellHolder[T]
	v, _ := holders.LoadOrStore(key, &cellHolder[T]{})
	return &v.(*cellHolder[T]).c
}

// Provided is a process-wide slot that must be set exactly once via Set
// before any Get, mirroring Global<T>. It exists for values that cannot be
// default-constructed meaningfully — e.g. "the entity store currently being
// deserialized" — and is deliberately stricter than Of: using it before
// Set, or calling Set twice, is a programming error and panics.
type Provided[T any] struct {
	mu  sync.Mutex
	set bool
	val *T
}

// Set injects the value. Panics if called twice.
func (p *Provided[T]) Set(v *T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set {
		panic("lazy: Provided value set twice")
	}
	p.val = v
	p.set = true
}

// Get returns the injected value. Panics if Set was never called.
func (p *Provided[T]) Get() *T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		panic("lazy: Provided value read before Set")
	}
	return p.val
}

// Reset clears the slot, allowing a fresh Set. Used between independent
// deserialization passes (e.g. successive test cases) that would otherwise
// trip the double-set panic.
func (p *Provided[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = false
	p.val = nil
}

// Locator maps string keys to named instances of T, for the common case of
// wanting "the thing registered under this name" without pulling in a full
// dependency-injection framework.
type Locator[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

// NewLocator creates an empty Locator.
func NewLocator[T any]() *Locator[T] {
	return &Locator[T]{items: make(map[string]*T)}
}

// Register binds name to v. Overwrites any previous binding for name.
func (l *Locator[T]) Register(name string, v *T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[name] = v
}

// Find returns the value bound to name, if any.
func (l *Locator[T]) Find(name string) (*T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.items[name]
	return v, ok
}

// MustFind returns the value bound to name, panicking with a precise
// message if it is unbound — the same "silent when queried loosely,
// assertion when accessed directly" split used throughout the library.
func (l *Locator[T]) MustFind(name string) *T {
	v, ok := l.Find(name)
	if !ok {
		panic(fmt.Sprintf("lazy: locator has no entry named %q", name))
	}
	return v
}
