package refman

import "fmt"

// Weak is a non-owning reference: a cached pointer plus the handle and
// generation it was taken under. Every dereference re-validates the
// generation against the manager's current table, so a Weak surviving past
// a DeleteReference call is safely detected as stale rather than read as a
// dangling pointer.
type Weak[B any] struct {
	manager    *Manager[B]
	handle     Handle
	generation Qualifier
	ptr        *B
}

// IsValid reports whether the referenced slot still holds the generation
// this Weak was taken under.
func (w Weak[B]) IsValid() bool {
	if w.manager == nil || w.handle.IsZero() {
		return false
	}
	return w.manager.identifiers[w.handle.Raw()] == w.generation
}

// Get returns the referenced object. Panics if the reference is stale —
// the debug-build assertion the source relies on.
func (w Weak[B]) Get() *B {
	if !w.IsValid() {
		panic("refman: dereference of a stale weak reference")
	}
	return w.ptr
}

// Handle returns the underlying handle, valid or not.
func (w Weak[B]) Handle() Handle {
	return w.handle
}

// Qualified is a weak reference plus an explicit validity query re-checked
// against the manager's generation table — identical machinery to Weak,
// named separately because its contract is "always safe to ask IsValid,
// never panics".
type Qualified[B any] struct {
	manager    *Manager[B]
	handle     Handle
	generation Qualifier
}

// IsValid reports whether the captured generation still matches.
func (q Qualified[B]) IsValid() bool {
	if q.manager == nil || q.handle.IsZero() {
		return false
	}
	return q.manager.identifiers[q.handle.Raw()] == q.generation
}

// Get returns the referenced object and true, or nil and false if stale.
func (q Qualified[B]) Get() (*B, bool) {
	if !q.IsValid() {
		return nil, false
	}
	return q.manager.data[q.handle.Raw()], true
}

// Handle returns the underlying handle, valid or not.
func (q Qualified[B]) Handle() Handle {
	return q.handle
}

// MakeQualifiedRef constructs v and returns a Qualified reference to it.
func MakeQualifiedRef[B any](m *Manager[B], v B) Qualified[B] {
	w := MakeRef(m, v)
	return w.AsQualified()
}

// AsQualified converts a Weak into a Qualified capturing the same
// handle/generation.
func (w Weak[B]) AsQualified() Qualified[B] {
	return Qualified[B]{manager: w.manager, handle: w.handle, generation: w.generation}
}

// AsWeak converts a Qualified back into a Weak, re-deriving the cached
// pointer. Panics if the qualified reference is already stale.
func (q Qualified[B]) AsWeak() Weak[B] {
	ptr, ok := q.Get()
	if !ok {
		panic("refman: AsWeak of a stale qualified reference")
	}
	return Weak[B]{manager: q.manager, handle: q.handle, generation: q.generation, ptr: ptr}
}

// Unique is an owning reference: exactly one Unique is responsible for
// calling Release (there are no destructors in Go to do this implicitly).
// Its zero value is a released/empty reference.
type Unique[B any] struct {
	Weak[B]
	released bool
}

// MakeUniqueRef constructs v and returns a Unique owning reference to it.
func MakeUniqueRef[B any](m *Manager[B], v B) Unique[B] {
	return Unique[B]{Weak: MakeRef(m, v)}
}

// Release destroys the owned object via the manager, a no-op if already
// released or empty. Callers MUST call this exactly once per live Unique —
// Go has no RAII to do it for them.
func (u *Unique[B]) Release() {
	if u.released {
		return
	}
	u.released = true
	if u.manager != nil {
		u.manager.DeleteReference(u.handle)
	}
	u.manager = nil
	u.handle = Handle{}
	u.ptr = nil
}

// Move transfers ownership to the returned Unique and empties the
// receiver, the explicit stand-in for C++ move construction. Using the
// receiver afterward (other than Release, which becomes a no-op) is a
// programming error.
func (u *Unique[B]) Move() Unique[B] {
	if u.released {
		panic("refman: Move of an already-released Unique")
	}
	moved := *u
	u.released = true
	u.manager = nil
	u.handle = Handle{}
	u.ptr = nil
	return moved
}

// AsWeak returns a non-owning Weak view of u, valid only as long as u (or
// whatever it was moved into) has not been released.
func (u Unique[B]) AsWeak() Weak[B] {
	return u.Weak
}

// Managed is a reference that the manager nullifies automatically when the
// underlying object is deleted. Subscribing requires a stable address, so
// MakeManagedRef returns a pointer; callers MUST call Release when done
// with it (or let DeleteReference clear it), mirroring C6's "visited and
// nilled out by deleteReference" contract without relying on destructors.
type Managed[B any] struct {
	Weak[B]
}

// MakeManagedRef constructs v, subscribes a fresh Managed under its
// handle, and returns it.
func MakeManagedRef[B any](m *Manager[B], v B) *Managed[B] {
	w := MakeRef(m, v)
	mr := &Managed[B]{Weak: w}
	m.subscribe(w.handle, mr)
	return mr
}

// Subscribe wraps an existing Weak as a Managed reference to the same
// object, subscribing it with the manager.
func Subscribe[B any](w Weak[B]) *Managed[B] {
	mr := &Managed[B]{Weak: w}
	if w.manager != nil {
		w.manager.subscribe(w.handle, mr)
	}
	return mr
}

// Copy returns a new Managed subscribed to the same target as mr —
// subscriptions are per-instance, so a copy must register itself
// separately, matching the source's "copies re-subscribe" rule.
func (mr *Managed[B]) Copy() *Managed[B] {
	if mr.manager == nil {
		return &Managed[B]{}
	}
	return Subscribe(mr.Weak)
}

// Release unsubscribes mr from the manager and empties it. Safe to call on
// an already-empty Managed.
func (mr *Managed[B]) Release() {
	if mr.manager != nil {
		mr.manager.unsubscribe(mr.handle, mr)
	}
	mr.clearPtr()
}

func (mr *Managed[B]) clearPtr() {
	mr.manager = nil
	mr.handle = Handle{}
	mr.generation = QualifierInvalidated
	mr.ptr = nil
}

// String renders a short diagnostic, grounded in the source's debug
// printers for reference types.
func (w Weak[B]) String() string {
	if !w.IsValid() {
		return fmt.Sprintf("Weak[%d](stale)", w.handle.Raw())
	}
	return fmt.Sprintf("Weak[%d]", w.handle.Raw())
}
