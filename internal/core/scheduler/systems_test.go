package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrets/mem/internal/core/component"
	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/event"
)

type widgetComp struct{ N int }

func TestEventDispatchSystemDeliversPreviousTickEvents(t *testing.T) {
	bus := event.NewBus()
	sys := &EventDispatchSystem{Bus: bus}

	var seen int
	event.Subscribe(bus, func(e event.EntityRemoved) { seen++ })

	event.Emit(bus, event.EntityRemoved{Entity: entitystore.Entity{}, Qualifier: 1})

	// EventDispatchSystem swaps and dispatches in the same call, so an event
	// emitted before Update is already in the front buffer once it runs.
	sys.Update(time.Millisecond)
	assert.Equal(t, 1, seen)

	// Nothing emitted since: the next tick's swap must not redeliver it.
	sys.Update(time.Millisecond)
	assert.Equal(t, 1, seen)
}

func TestCollectRemovedSystemEmitsOnePerRemovedEntity(t *testing.T) {
	store := entitystore.New(component.New())
	bus := event.NewBus()
	sys := &CollectRemovedSystem{Store: store, Bus: bus}

	e1 := store.Make()
	e2 := store.Make()
	entitystore.Add(store, e1, widgetComp{N: 1})
	entitystore.Add(store, e2, widgetComp{N: 2})

	var emitted []entitystore.Entity
	event.Subscribe(bus, func(ev event.EntityRemoved) { emitted = append(emitted, ev.Entity) })

	store.Remove(e1)
	require.Len(t, store.Removed(), 1)

	sys.Update(time.Millisecond)

	assert.False(t, store.IsValidIndex(e1))
	assert.Empty(t, store.Removed())

	// The events land in the bus's back buffer and are delivered after a swap.
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, []entitystore.Entity{e1}, emitted)

	// The entity must be compacted and its slot free for reuse.
	next := store.Make()
	assert.Equal(t, e1.Raw(), next.Raw())
}

func TestCollectRemovedSystemToleratesNilBus(t *testing.T) {
	store := entitystore.New(component.New())
	sys := &CollectRemovedSystem{Store: store, Bus: nil}

	e := store.Make()
	store.Remove(e)

	assert.NotPanics(t, func() {
		sys.Update(time.Millisecond)
	})
}
