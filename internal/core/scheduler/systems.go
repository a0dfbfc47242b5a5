package scheduler

import (
	"time"

	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/event"
)

// EventDispatchSystem swaps the event bus's buffers and delivers the
// previous tick's events to their subscribers. Registered at
// PhasePreUpdate so every other system that tick observes a stable,
// fully-populated front buffer.
type EventDispatchSystem struct {
	Bus *event.Bus
}

func (s *EventDispatchSystem) Phase() Phase { return PhasePreUpdate }

func (s *EventDispatchSystem) Update(time.Duration) {
	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()
}

// CollectRemovedSystem runs the entity store's compaction epoch fence once
// per tick. Registered at PhaseCleanup, last in the ordering, so no other
// system that tick can observe a component pointer invalidated mid-phase.
type CollectRemovedSystem struct {
	Store *entitystore.Store
	Bus   *event.Bus
}

func (s *CollectRemovedSystem) Phase() Phase { return PhaseCleanup }

func (s *CollectRemovedSystem) Update(time.Duration) {
	removed := s.Store.Removed()
	s.Store.CollectRemoved()
	if s.Bus == nil {
		return
	}
	for _, e := range removed {
		event.Emit(s.Bus, event.EntityRemoved{
			Entity:    e,
			Qualifier: s.Store.GetQualifier(e),
		})
	}
}
