// Package scheduler drives a phase-ordered tick loop over a set of
// registered systems. It owns no entity store or reference manager
// directly; the cleanup-phase system registered by a caller is expected to
// call entitystore.Store.CollectRemoved exactly once per tick, never
// mid-query, per the store's compaction-fence contract.
package scheduler

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick.
type Runner struct {
	systems []System
	sorted  bool
}

// NewRunner creates an empty Runner.
func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

// Register adds s to the runner. Order among systems sharing a phase is
// registration order.
func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every registered system once, in phase order.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
}

// TickPhase runs only the systems registered under phase, for callers that
// want to poll a high-frequency phase (e.g. input) between full ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Phase() < r.systems[j].Phase()
	})
	r.sorted = true
}
