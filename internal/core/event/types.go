package event

import "github.com/intrets/mem/internal/core/entitystore"

// EntityRemoved fires once CollectRemoved has recycled an entity, after its
// components were already destructed by Store.Remove. Consumers that need
// to react to removal (tearing down a session, logging) should subscribe
// to this instead of polling IsValidIndex every tick.
type EntityRemoved struct {
	Entity    entitystore.Entity
	Qualifier uint64
}

// HandleFreed describes a refman.Manager slot that has been reclaimed and
// its Managed subscribers nullified, for consumers that want a tick-delayed
// notification rather than reacting inline during DeleteReference.
// DeleteReference itself does not emit it; nothing in this module does.
type HandleFreed struct {
	Handle uint32
}
