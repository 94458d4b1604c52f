package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// LifetimeSystem ages actors and queues expired ones. Phase 1 (PreUpdate).
type LifetimeSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewLifetimeSystem(ws *world.State, log *zap.Logger) *LifetimeSystem {
	return &LifetimeSystem{world: ws, log: log}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *LifetimeSystem) Update(dt time.Duration) {
	if n := s.world.AgeActors(dt.Seconds()); n > 0 {
		s.log.Debug("actors expired", zap.Int("count", n))
	}
}
