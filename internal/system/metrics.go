package system

import (
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/metrics"
	"github.com/altplanet/engine/internal/world"
)

// MetricsSystem copies pool occupancy into the Prometheus gauges every
// interval ticks. Phase 7 (Cleanup), after the destroy queue is flushed.
type MetricsSystem struct {
	world     *world.State
	rec       *metrics.Recorder
	interval  int
	tickCount int
}

func NewMetricsSystem(ws *world.State, rec *metrics.Recorder, intervalTicks int) *MetricsSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &MetricsSystem{world: ws, rec: rec, interval: intervalTicks, tickCount: intervalTicks - 1}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	for _, p := range s.world.Pools() {
		s.rec.SetPool(p.Name, p.Stats)
	}
}
