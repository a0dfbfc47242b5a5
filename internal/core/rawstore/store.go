// Package rawstore implements the per-component-type packed storage
// described in spec.md §4.2: an append-only-with-lazy-delete byte buffer
// plus a parallel back-reference array, compacted in batches by
// PackDeletions.
package rawstore

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/intrets/mem/internal/core/component"
	"github.com/intrets/mem/internal/core/index"
)

// slotTag distinguishes a Slot index from any other index.Index
// instantiation (entity indices, component-type ids).
type slotTag struct{}

// Slot addresses one object inside a single Store. Zero is reserved.
type Slot = index.Index[slotTag]

// SlotOf builds a Slot from a previously observed raw value — for callers
// (the entity store's query engine) that need to re-derive a Slot from an
// iteration counter rather than one returned by Add/CloneUntyped.
func SlotOf(raw uint32) Slot {
	return index.Of[slotTag](raw)
}

// Owner is the type of the caller-supplied back-reference stashed alongside
// each live slot — normally an entity index, but the store itself is
// agnostic to what it means.
type Owner = uint32

// Relocation records that the object formerly owned by Owner now lives at
// Slot, emitted by PackDeletions so the entity store can repair its routing
// table.
type Relocation struct {
	Slot  Slot
	Owner Owner
}

// Store is the packed payload buffer for exactly one component type.
// Not safe for concurrent use.
type Store struct {
	info component.Info

	reservedObjects uint32
	end             Slot // next free slot; [1,end) are allocated
	payload         []byte
	backRef         []Owner // backRef[0] unused (slot 0 reserved)

	pendingDeletions []Slot
}

// New creates an empty Store bound to the given component metadata. The
// backing buffer is not allocated until the first Add, matching the
// source's reservedObjects==0 lazy-init path.
func New(info component.Info) *Store {
	return &Store{
		info:    info,
		backRef: []Owner{0}, // slot 0 sentinel
	}
}

// Info returns the component metadata this store was built for.
func (s *Store) Info() component.Info {
	return s.info
}

// End returns the exclusive upper bound of allocated slots — used by the
// entity store's pivot selection to find the smallest candidate store.
func (s *Store) End() Slot {
	return s.end
}

func (s *Store) grow() {
	if s.reservedObjects == 0 {
		s.reservedObjects = 16
		s.end = index.Of[slotTag](1)
		s.payload = make([]byte, s.reservedObjects*uint32(s.info.Width))
		return
	}
	s.reservedObjects *= 2
	grown := make([]byte, s.reservedObjects*uint32(s.info.Width))
	copy(grown, s.payload)
	s.payload = grown
}

func (s *Store) slotPtr(slot Slot) unsafe.Pointer {
	off := uintptr(slot.Raw()) * s.info.Width
	return unsafe.Pointer(&s.payload[off])
}

// Add copy-constructs the value pointed to by src into a freshly allocated
// slot owned by owner and returns that slot.
func (s *Store) Add(owner Owner, src unsafe.Pointer) Slot {
	if s.reservedObjects == 0 {
		s.grow()
	} else if uint32(s.end.Raw()) >= s.reservedObjects {
		s.grow()
	}

	slot := s.end
	s.backRef = append(s.backRef, owner)
	s.info.Clone(src, s.slotPtr(slot))
	s.end = s.end.Next()
	return slot
}

// Get returns a pointer to the live object at slot. Panics on an
// out-of-range slot, an assertion-class programming error.
func (s *Store) Get(slot Slot) unsafe.Pointer {
	if slot.IsZero() || uint32(slot.Raw()) >= uint32(s.end.Raw()) {
		panic(fmt.Sprintf("rawstore(%s): slot %d out of range [1,%d)", s.info.Name, slot.Raw(), s.end.Raw()))
	}
	return s.slotPtr(slot)
}

// BackRef returns the owner recorded for slot.
func (s *Store) BackRef(slot Slot) Owner {
	if slot.IsZero() || uint32(slot.Raw()) >= uint32(s.end.Raw()) {
		panic(fmt.Sprintf("rawstore(%s): slot %d out of range [1,%d)", s.info.Name, slot.Raw(), s.end.Raw()))
	}
	return s.backRef[slot.Raw()]
}

// RemoveUntyped destructs the object at slot and marks it pending
// compaction. The slot's bytes are not reused until PackDeletions runs.
func (s *Store) RemoveUntyped(slot Slot) {
	if slot.IsZero() || uint32(slot.Raw()) >= uint32(s.end.Raw()) {
		panic(fmt.Sprintf("rawstore(%s): remove of out-of-range slot %d", s.info.Name, slot.Raw()))
	}
	s.info.Destroy(s.slotPtr(slot))
	s.pendingDeletions = append(s.pendingDeletions, slot)
}

// CloneUntyped copy-constructs the object at src into a new slot owned by
// newOwner and returns that slot.
func (s *Store) CloneUntyped(src Slot, newOwner Owner) Slot {
	if src.IsZero() || uint32(src.Raw()) >= uint32(s.end.Raw()) {
		panic(fmt.Sprintf("rawstore(%s): clone of out-of-range slot %d", s.info.Name, src.Raw()))
	}
	if uint32(s.end.Raw()) >= s.reservedObjects {
		s.grow()
	}
	dst := s.end
	s.backRef = append(s.backRef, newOwner)
	s.info.Clone(s.slotPtr(src), s.slotPtr(dst))
	s.end = s.end.Next()
	return dst
}

// PackDeletions physically compacts every pending deletion: sorted
// descending by slot so a deletion at the current top never disturbs a slot
// still to be processed, each hole is filled by moving the last live
// object into it. Returns the list of {slot, newOwner} relocations so the
// caller (entity store) can repair its routing table.
func (s *Store) PackDeletions() []Relocation {
	if len(s.pendingDeletions) == 0 {
		return nil
	}

	sort.Slice(s.pendingDeletions, func(i, j int) bool {
		return s.pendingDeletions[i].Raw() > s.pendingDeletions[j].Raw()
	})

	relocations := make([]Relocation, 0, len(s.pendingDeletions))

	for _, slot := range s.pendingDeletions {
		lastIdx := s.end.Raw() - 1
		last := index.Of[slotTag](lastIdx)
		s.end = last // pop the top slot

		if slot.Raw() == lastIdx {
			s.backRef = s.backRef[:len(s.backRef)-1]
			continue
		}

		movedOwner := s.backRef[lastIdx]
		copy(s.payload[uintptr(slot.Raw())*s.info.Width:], s.payload[uintptr(lastIdx)*s.info.Width:uintptr(lastIdx)*s.info.Width+s.info.Width])
		s.backRef = s.backRef[:len(s.backRef)-1]
		s.backRef[slot.Raw()] = movedOwner

		relocations = append(relocations, Relocation{Slot: slot, Owner: movedOwner})
	}

	s.pendingDeletions = s.pendingDeletions[:0]
	return relocations
}

// PendingDeletions returns the number of slots destructed but not yet
// compacted, mainly for tests and diagnostics.
func (s *Store) PendingDeletions() int {
	return len(s.pendingDeletions)
}
