package scheduler

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // drain transport queues
	PhasePreUpdate               // dispatch last tick's events
	PhaseUpdate                  // application logic
	PhasePostUpdate              // derived state, spawn/despawn requests
	PhaseOutput                  // build and flush outbound traffic
	PhasePersist                 // persistence writes
	PhaseCleanup                 // CollectRemoved epoch fence
)

// System is the interface every scheduled unit of work implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
