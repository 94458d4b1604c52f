package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/world"
)

// SyncSystem copies physics results to the actor transforms and scene nodes,
// then moves the camera. Phase 4 (Sync). Desync errors are logged and
// published by the world itself.
type SyncSystem struct {
	world *world.State
}

func NewSyncSystem(ws *world.State) *SyncSystem {
	return &SyncSystem{world: ws}
}

func (s *SyncSystem) Phase() coresys.Phase { return coresys.PhaseSync }

func (s *SyncSystem) Update(_ time.Duration) {
	_ = s.world.SyncTransforms()
	s.world.UpdateCamera()
}
