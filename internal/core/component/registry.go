// Package component assigns each distinct component type a dense small
// integer id and records the type-erased operations (destroy, clone, and
// optional read/write/print hooks) a raw component store needs to manage
// values of that type without importing it.
package component

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/intrets/mem/internal/core/index"
	"github.com/intrets/mem/internal/core/lazy"
)

// componentTag is the phantom type that distinguishes a component TypeID
// from any other index.Index instantiation.
type componentTag struct{}

// TypeID is a dense integer in [0, SIZE) identifying a registered component
// type. Assignment is stable for the lifetime of the Registry.
type TypeID = index.Index[componentTag]

// MaxTypes bounds how many distinct component types a single Registry (and
// therefore a single entity store) may host. This mirrors the reference
// SIZE=64 bitset width; a signature is meaningless once a registry exceeds
// it.
const MaxTypes = 64

// Info is the type-erased operation table for one registered component
// type, equivalent to StructInformation in the source design.
type Info struct {
	Name  string
	ID    TypeID
	Width uintptr

	Destroy func(unsafe.Pointer)
	Clone   func(src, dst unsafe.Pointer)

	// Read, Write and Print are optional serialization hooks. A nil Print
	// falls back to a generic reflect-based formatter so every component
	// is at least debug-printable.
	Read  func(unsafe.Pointer, []byte) (int, error)
	Write func(unsafe.Pointer) ([]byte, error)
	Print func(unsafe.Pointer) string
}

// Registry assigns and stores TypeID -> Info mappings. It is safe for
// concurrent use: registration happens at most once per type, guarded by a
// mutex, exactly like the source's "thread-safe-on-first-use" requirement.
type Registry struct {
	mu      sync.Mutex
	byType  map[reflect.Type]TypeID
	infos   []Info
	nextRaw uint32
}

// New creates an empty Registry. Most callers should share one Registry
// across an entire object universe (see the package-level Default), but
// tests commonly want an isolated one so type ids stay deterministic.
func New() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]TypeID),
		infos:  make([]Info, 0, MaxTypes),
	}
}

// idOf returns the previously assigned id for T, if any, and whether it was
// found — split out so IDOf (a free function, since Go forbids type
// parameters on methods) can do the "double-checked" cheap path without
// paying for reflection-heavy registration on every call.
func (r *Registry) idOf(t reflect.Type) (TypeID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byType[t]
	return id, ok
}

func (r *Registry) register(t reflect.Type, build func() Info) TypeID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byType[t]; ok {
		return id
	}

	if r.nextRaw >= MaxTypes {
		panic(fmt.Sprintf("component: registry exceeded MaxTypes=%d registering %s", MaxTypes, t))
	}

	id := index.Of[componentTag](r.nextRaw)
	r.nextRaw++

	info := build()
	info.ID = id
	if info.Name == "" {
		info.Name = t.String()
	}

	r.byType[t] = id
	r.infos = append(r.infos, info)
	return id
}

// Info returns the metadata for a previously registered TypeID. Panics if
// the id is out of range, an assertion-class programming error per the
// error-handling design.
func (r *Registry) Info(id TypeID) Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw := id.Raw()
	if int(raw) >= len(r.infos) {
		panic(fmt.Sprintf("component: TypeID %d never registered", raw))
	}
	return r.infos[raw]
}

// Count returns how many distinct component types have been registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

// IDOf returns the stable id for component type T, registering it on first
// use. It is idempotent: calling it twice for the same T returns the same
// id, matching spec.md's registration contract.
func IDOf[T any](r *Registry) TypeID {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if id, ok := r.idOf(t); ok {
		return id
	}
	return r.register(t, func() Info {
		return buildInfo[T]()
	})
}

// WithHooks registers T (if not already registered) with explicit
// serialization hooks, then returns its id. Components that never call this
// still get an id via IDOf; WithHooks exists for the persistence demo layer
// to opt a type into Read/Write without core packages depending on it.
func WithHooks[T any](r *Registry, read func(*T, []byte) (int, error), write func(*T) ([]byte, error), print func(*T) string) TypeID {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if id, ok := r.idOf(t); ok {
		return id
	}
	return r.register(t, func() Info {
		info := buildInfo[T]()
		if read != nil {
			info.Read = func(p unsafe.Pointer, b []byte) (int, error) {
				return read((*T)(p), b)
			}
		}
		if write != nil {
			info.Write = func(p unsafe.Pointer) ([]byte, error) {
				return write((*T)(p))
			}
		}
		if print != nil {
			info.Print = func(p unsafe.Pointer) string {
				return print((*T)(p))
			}
		}
		return info
	})
}

func buildInfo[T any]() Info {
	var zero T
	t := reflect.TypeOf(zero)

	return Info{
		Name:  t.String(),
		Width: alignedSizeof[T](),
		Destroy: func(p unsafe.Pointer) {
			// Go values need no destructor call in the C++ sense (no
			// user-defined dtors), but resetting to the zero value drops
			// any references the value holds, matching the "destructor
			// ran exactly once" testable property (§8 property 3).
			*(*T)(p) = zero
		},
		Clone: func(src, dst unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
		},
		Print: func(p unsafe.Pointer) string {
			return reflectPrint(*(*T)(p))
		},
	}
}

// alignedSizeof mirrors RawData::aligned_sizeof: pad T's size up to 8 bytes
// so payload slots never straddle an alignment boundary the raw store
// relies on for its unsafe pointer arithmetic.
func alignedSizeof[T any]() uintptr {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		return 0
	}
	const width = 8
	return size + (width - 1) - (size-1)%width
}

func reflectPrint(v any) string {
	return fmt.Sprintf("%+v", v)
}

// Default returns the process-wide Registry used when a caller does not
// construct its own. It is lazily initialized via lazy.OfFunc, mirroring
// LazyGlobal<StoredStructInformations> in the source design.
func Default() *Registry {
	return lazy.OfFunc(func() *Registry {
		return New()
	})
}
