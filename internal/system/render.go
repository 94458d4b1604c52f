package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/scene"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// RenderSystem recomputes world matrices and logs scene stats every
// statsInterval ticks. Phase 5 (Render).
type RenderSystem struct {
	world         *world.State
	log           *zap.Logger
	statsInterval int
	tickCount     int
	last          scene.RenderStats
}

func NewRenderSystem(ws *world.State, log *zap.Logger, statsInterval int) *RenderSystem {
	return &RenderSystem{world: ws, log: log, statsInterval: statsInterval}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ time.Duration) {
	s.last = s.world.Graph().UpdateWorld()
	if s.statsInterval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.statsInterval {
		return
	}
	s.tickCount = 0
	cam := s.world.Camera().Transform.Position
	s.log.Debug("render stats",
		zap.Int("nodes", s.last.Nodes),
		zap.Int("objects", s.last.Objects),
		zap.Int("lights", s.last.Lights),
		zap.Int("actors", s.world.ActorCount()),
		zap.Float64s("camera", cam[:]))
}

// LastStats reports the most recent pass.
func (s *RenderSystem) LastStats() scene.RenderStats { return s.last }
