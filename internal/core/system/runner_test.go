package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase           { return r.phase }
func (r recorder) Update(_ time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"physics", PhasePhysics, &log})
	r.Register(recorder{"mech-a", PhaseMechanics, &log})
	r.Register(recorder{"mech-b", PhaseMechanics, &log})
	r.Register(recorder{"sync", PhaseSync, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"mech-a", "mech-b", "physics", "sync", "cleanup"}, log)
	assert.Equal(t, uint64(1), r.Ticks())

	log = log[:0]
	r.TickPhase(PhaseMechanics, time.Millisecond)
	assert.Equal(t, []string{"mech-a", "mech-b"}, log)
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestRunnerObserve(t *testing.T) {
	var log []string
	seen := map[Phase]int{}
	r := NewRunner()
	r.Observe(func(p Phase, _ time.Duration) { seen[p]++ })
	r.Register(recorder{"a", PhaseSync, &log})
	r.Tick(0)
	r.Tick(0)
	assert.Equal(t, map[Phase]int{PhaseSync: 2}, seen)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "physics", PhasePhysics.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
