// Package refman implements a generational handle pool ("ReferenceManager")
// over a single owned type B, plus four reference kinds built on top of it:
// Weak (non-owning), Unique (owning, move-only), Qualified
// (generation-checked), and Managed (auto-nullified on deletion).
package refman

import (
	"fmt"

	"github.com/intrets/mem/internal/core/index"
)

// handleTag distinguishes a Handle from any other index.Index
// instantiation.
type handleTag struct{}

// Handle addresses one slot in a Manager's arena. Zero is the reserved
// null handle.
type Handle = index.Index[handleTag]

// Qualifier is the generation stamped on a handle's occupant. Zero means
// never used; one is reserved for explicit invalidation; two marks a freed
// tombstone; any live generation is odd and at least three.
type Qualifier uint64

const (
	QualifierNeverUsed   Qualifier = 0
	QualifierInvalidated Qualifier = 1
	QualifierFreed       Qualifier = 2
)

// Identifiable is an optional capability: pooled types that implement it
// get their handle stamped in automatically by MakeRef/MakeUniqueRef/
// MakeManagedRef, mirroring the source's selfHandle field.
type Identifiable interface {
	SetHandle(Handle)
}

// ManagerAware is an optional capability: pooled types that implement it
// get the owning *Manager[B] stamped in automatically, mirroring the
// source's referenceManager field.
type ManagerAware[B any] interface {
	SetManager(*Manager[B])
}

// UniqueIdentifiable is an optional capability: pooled types that implement
// it get their assigned generation mirrored onto themselves, for objects
// that want to carry their own identity alongside the manager's.
type UniqueIdentifiable interface {
	SetUniqueIdentifier(uint64)
}

type clearable interface {
	clearPtr()
}

// Manager owns a slotted arena of *B, a parallel generation table, and a
// free list of reclaimed handles. Not safe for concurrent use.
type Manager[B any] struct {
	data        []*B
	identifiers []Qualifier
	freed       []Handle

	nextGeneration uint64

	managedRefs map[uint32][]clearable
}

// NewManager creates an empty Manager. Handle 0 is pre-seeded as the
// reserved null sentinel.
func NewManager[B any]() *Manager[B] {
	m := &Manager[B]{
		managedRefs:    make(map[uint32][]clearable),
		nextGeneration: 1,
	}
	m.data = append(m.data, nil)
	m.identifiers = append(m.identifiers, QualifierNeverUsed)
	return m
}

func (m *Manager[B]) alloc() Handle {
	if n := len(m.freed); n > 0 {
		h := m.freed[n-1]
		m.freed = m.freed[:n-1]
		return h
	}
	h := index.Of[handleTag](uint32(len(m.data)))
	m.data = append(m.data, nil)
	m.identifiers = append(m.identifiers, QualifierNeverUsed)
	return h
}

// generation issues the next live generation: odd, strictly increasing,
// starting at 3 — 0/1/2 stay reserved for never-used/invalidated/freed.
func (m *Manager[B]) generation() Qualifier {
	m.nextGeneration += 2
	return Qualifier(m.nextGeneration)
}

func (m *Manager[B]) stamp(h Handle, gen Qualifier, obj *B) {
	if id, ok := any(obj).(Identifiable); ok {
		id.SetHandle(h)
	}
	if ma, ok := any(obj).(ManagerAware[B]); ok {
		ma.SetManager(m)
	}
	if ui, ok := any(obj).(UniqueIdentifiable); ok {
		ui.SetUniqueIdentifier(uint64(gen))
	}
}

// MakeRef constructs v in a fresh (or recycled) slot and returns a Weak
// reference to it.
func MakeRef[B any](m *Manager[B], v B) Weak[B] {
	h := m.alloc()
	obj := new(B)
	*obj = v
	gen := m.generation()

	m.data[h.Raw()] = obj
	m.identifiers[h.Raw()] = gen
	m.stamp(h, gen, obj)

	return Weak[B]{manager: m, handle: h, generation: gen, ptr: obj}
}

// ValidHandle reports whether h currently addresses a live object.
func (m *Manager[B]) ValidHandle(h Handle) bool {
	if h.IsZero() || int(h.Raw()) >= len(m.data) {
		return false
	}
	return m.data[h.Raw()] != nil
}

// Get returns the object at h. Panics if h is not currently live.
func (m *Manager[B]) Get(h Handle) *B {
	if !m.ValidHandle(h) {
		panic(fmt.Sprintf("refman: handle %d is not live", h.Raw()))
	}
	return m.data[h.Raw()]
}

// DeleteReference nullifies every Managed subscribed under h, destroys the
// object, marks h's generation as the freed tombstone, and pushes h onto
// the free list. A zero handle is a no-op.
func (m *Manager[B]) DeleteReference(h Handle) {
	if h.IsZero() {
		return
	}
	raw := h.Raw()
	if int(raw) >= len(m.data) {
		panic(fmt.Sprintf("refman: delete of out-of-range handle %d", raw))
	}

	for _, c := range m.managedRefs[raw] {
		c.clearPtr()
	}
	delete(m.managedRefs, raw)

	m.data[raw] = nil
	m.identifiers[raw] = QualifierFreed
	m.freed = append(m.freed, h)
}

func (m *Manager[B]) subscribe(h Handle, c clearable) {
	m.managedRefs[h.Raw()] = append(m.managedRefs[h.Raw()], c)
}

func (m *Manager[B]) unsubscribe(h Handle, c clearable) {
	lst := m.managedRefs[h.Raw()]
	for i, v := range lst {
		if v == c {
			lst = append(lst[:i], lst[i+1:]...)
			break
		}
	}
	if len(lst) == 0 {
		delete(m.managedRefs, h.Raw())
	} else {
		m.managedRefs[h.Raw()] = lst
	}
}

// SubscriptionCount reports how many Managed references are currently
// subscribed under h, mainly for tests.
func (m *Manager[B]) SubscriptionCount(h Handle) int {
	return len(m.managedRefs[h.Raw()])
}

// PendingResolve pairs a handle recorded during deserialization with the
// in-memory field that should be patched to reference it, once every
// object has been reconstructed.
type PendingResolve[B any] struct {
	Handle Handle
	Target *Weak[B]
}

// CompleteReferences resolves every pending {handle, field} pair against m,
// writing a live Weak reference into each target. Mirrors
// ReferenceManager::completeReferences.
func CompleteReferences[B any](m *Manager[B], pending []PendingResolve[B]) {
	for _, p := range pending {
		if !m.ValidHandle(p.Handle) {
			*p.Target = Weak[B]{}
			continue
		}
		*p.Target = Weak[B]{
			manager:    m,
			handle:     p.Handle,
			generation: m.identifiers[p.Handle.Raw()],
			ptr:        m.data[p.Handle.Raw()],
		}
	}
}
