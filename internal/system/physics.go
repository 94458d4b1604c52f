package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/physics"
	"github.com/altplanet/engine/internal/world"
)

// PhysicsSystem integrates every body and advances the simulation clock.
// Phase 3 (Physics).
type PhysicsSystem struct {
	world *world.State
	last  physics.StepStats
}

func NewPhysicsSystem(ws *world.State) *PhysicsSystem {
	return &PhysicsSystem{world: ws}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *PhysicsSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	s.last = s.world.Simulation().Step(sec)
	s.world.Advance(sec)
}

// LastStep reports the most recent step's counters.
func (s *PhysicsSystem) LastStep() physics.StepStats { return s.last }
