package system

import (
	"time"

	"github.com/altplanet/engine/internal/core/event"
	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// MechanicsSystem turns controller state into forces. Phase 2 (Mechanics).
type MechanicsSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewMechanicsSystem(ws *world.State, log *zap.Logger) *MechanicsSystem {
	return &MechanicsSystem{world: ws, log: log}
}

func (s *MechanicsSystem) Phase() coresys.Phase { return coresys.PhaseMechanics }

func (s *MechanicsSystem) Update(dt time.Duration) {
	if err := s.world.Mechanics().Update(dt.Seconds()); err != nil {
		s.log.Warn("controller/body pools out of step", zap.Error(err))
		event.Emit(s.world.Bus(), event.PoolDesynced{Pools: "controllers/rigid_bodies", Err: err})
	}
}
