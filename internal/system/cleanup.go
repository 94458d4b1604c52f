package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/world"
)

// CleanupSystem flushes the deferred actor destruction queue at tick end.
// Phase 7 (Cleanup).
type CleanupSystem struct {
	world *world.State
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{world: ws}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	_, _ = s.world.FlushDestroyQueue()
}
