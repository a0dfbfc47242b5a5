package entitystore

import (
	"github.com/intrets/mem/internal/core/component"
	"github.com/intrets/mem/internal/core/index"
	"github.com/intrets/mem/internal/core/rawstore"
)

// Run1 invokes f once for every entity holding a component of type A. A's
// store is necessarily its own pivot.
func Run1[A any](s *Store, f func(Entity, *A)) {
	idA := component.IDOf[A](s.registry)
	rawA := s.rawStoreFor(idA)
	end := rawA.End().Raw()
	for raw := uint32(1); raw < end; raw++ {
		sl := rawstore.SlotOf(raw)
		owner := rawA.BackRef(sl)
		f(entityOf(owner), (*A)(rawA.Get(sl)))
	}
}

// Run2 invokes f once for every entity holding components of both A and B.
// Iteration walks whichever of A's or B's store has fewer live slots (the
// pivot), re-checking the full signature mask before invoking f so the
// result is exactly the intersection.
func Run2[A, B any](s *Store, f func(Entity, *A, *B)) {
	idA := component.IDOf[A](s.registry)
	idB := component.IDOf[B](s.registry)
	rawA := s.rawStoreFor(idA)
	rawB := s.rawStoreFor(idB)
	mask := bitOf(idA) | bitOf(idB)

	pivotIsA := rawA.End().Raw() <= rawB.End().Raw()
	var pivot *rawstore.Store
	if pivotIsA {
		pivot = rawA
	} else {
		pivot = rawB
	}

	end := pivot.End().Raw()
	for raw := uint32(1); raw < end; raw++ {
		sl := rawstore.SlotOf(raw)
		owner := pivot.BackRef(sl)
		if s.signatures[owner]&mask != mask {
			continue
		}
		e := entityOf(owner)
		var a *A
		var b *B
		if pivotIsA {
			a = (*A)(pivot.Get(sl))
			b = (*B)(rawB.Get(s.dataIndices[idB.Raw()][owner]))
		} else {
			b = (*B)(pivot.Get(sl))
			a = (*A)(rawA.Get(s.dataIndices[idA.Raw()][owner]))
		}
		f(e, a, b)
	}
}

// Run3 invokes f once for every entity holding components of A, B and C,
// selecting whichever of the three stores is smallest as pivot.
func Run3[A, B, C any](s *Store, f func(Entity, *A, *B, *C)) {
	idA := component.IDOf[A](s.registry)
	idB := component.IDOf[B](s.registry)
	idC := component.IDOf[C](s.registry)
	rawA := s.rawStoreFor(idA)
	rawB := s.rawStoreFor(idB)
	rawC := s.rawStoreFor(idC)
	mask := bitOf(idA) | bitOf(idB) | bitOf(idC)

	pivot, which := smallest3(rawA, rawB, rawC)

	end := pivot.End().Raw()
	for raw := uint32(1); raw < end; raw++ {
		sl := rawstore.SlotOf(raw)
		owner := pivot.BackRef(sl)
		if s.signatures[owner]&mask != mask {
			continue
		}
		e := entityOf(owner)
		var a *A
		var b *B
		var c *C
		switch which {
		case 0:
			a = (*A)(pivot.Get(sl))
			b = (*B)(rawB.Get(s.dataIndices[idB.Raw()][owner]))
			c = (*C)(rawC.Get(s.dataIndices[idC.Raw()][owner]))
		case 1:
			b = (*B)(pivot.Get(sl))
			a = (*A)(rawA.Get(s.dataIndices[idA.Raw()][owner]))
			c = (*C)(rawC.Get(s.dataIndices[idC.Raw()][owner]))
		default:
			c = (*C)(pivot.Get(sl))
			a = (*A)(rawA.Get(s.dataIndices[idA.Raw()][owner]))
			b = (*B)(rawB.Get(s.dataIndices[idB.Raw()][owner]))
		}
		f(e, a, b, c)
	}
}

func smallest3(a, b, c *rawstore.Store) (*rawstore.Store, int) {
	which := 0
	pivot := a
	if b.End().Raw() < pivot.End().Raw() {
		pivot = b
		which = 1
	}
	if c.End().Raw() < pivot.End().Raw() {
		pivot = c
		which = 2
	}
	return pivot, which
}

// Match2 returns every entity currently holding components of both A and
// B, without dereferencing either — useful when callers only need the
// entity set, e.g. to batch a later mutation.
func Match2[A, B any](s *Store) []Entity {
	var out []Entity
	Run2[A, B](s, func(e Entity, _ *A, _ *B) {
		out = append(out, e)
	})
	return out
}

func entityOf(raw uint32) Entity {
	return index.Of[entityTag](raw)
}
