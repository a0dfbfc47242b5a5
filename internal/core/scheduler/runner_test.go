package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (s *recordingSystem) Phase() Phase { return s.phase }
func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestTickRunsSystemsInPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{phase: PhaseCleanup, name: "cleanup", log: &log})
	r.Register(&recordingSystem{phase: PhaseInput, name: "input", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "update", log: &log})

	r.Tick(16 * time.Millisecond)

	assert.Equal(t, []string{"input", "update", "cleanup"}, log)
}

func TestTickPreservesRegistrationOrderWithinAPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "first", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "second", log: &log})

	r.Tick(time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, log)
}

func TestTickPhaseRunsOnlyThatPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{phase: PhaseInput, name: "input", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "update", log: &log})

	r.TickPhase(PhaseInput, time.Millisecond)

	assert.Equal(t, []string{"input"}, log)
}
