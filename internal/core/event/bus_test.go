package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tickEvent struct{ N int }
type otherEvent struct{ S string }

func TestEmitIsNotVisibleUntilNextSwap(t *testing.T) {
	b := NewBus()
	var seen []int
	Subscribe(b, func(e tickEvent) { seen = append(seen, e.N) })

	Emit(b, tickEvent{N: 1})
	b.DispatchAll()
	assert.Empty(t, seen, "event emitted this tick must not be visible before a swap")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []int{1}, seen)
}

func TestSwapBuffersClearsNewBackBuffer(t *testing.T) {
	b := NewBus()
	var count int
	Subscribe(b, func(e tickEvent) { count++ })

	Emit(b, tickEvent{N: 1})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, count)

	// Nothing emitted this tick: the second swap must not replay tick 1's
	// events from a stale back buffer.
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, count)
}

func TestHandlersAreTypeScoped(t *testing.T) {
	b := NewBus()
	var ticks, others int
	Subscribe(b, func(e tickEvent) { ticks++ })
	Subscribe(b, func(e otherEvent) { others++ })

	Emit(b, tickEvent{N: 1})
	Emit(b, otherEvent{S: "x"})
	b.SwapBuffers()
	b.DispatchAll()

	assert.Equal(t, 1, ticks)
	assert.Equal(t, 1, others)
}

func TestMultipleSubscribersAllReceiveEvent(t *testing.T) {
	b := NewBus()
	var a, c int
	Subscribe(b, func(e tickEvent) { a++ })
	Subscribe(b, func(e tickEvent) { c++ })

	Emit(b, tickEvent{N: 1})
	b.SwapBuffers()
	b.DispatchAll()

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}
