package system

import (
	"time"

	"github.com/altplanet/engine/internal/core/event"
	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/metrics"
	"github.com/altplanet/engine/internal/net"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// PipelineConfig tunes the systems NewPipeline registers.
type PipelineConfig struct {
	InputQueue       int
	InputPerTick     int
	StatsInterval    int           // render stats every N ticks, 0 disables
	SnapshotInterval int           // snapshot every N ticks
	Saver            SnapshotSaver // nil disables persistence
	Metrics          *metrics.Recorder
	MetricsInterval  int         // pool gauges every N ticks
	Control          *net.Server // nil disables remote control
	ControlPerTick   int         // packets per session per tick
	MaxActors        int         // advertised to control clients
}

// Pipeline is the full set of systems for one world, registered on Runner
// in tick order.
type Pipeline struct {
	Runner  *coresys.Runner
	Input   *InputSystem
	Physics *PhysicsSystem
	Render  *RenderSystem
	Persist *PersistenceSystem // nil without a saver
	Remote  *RemoteSystem      // nil without a control server
}

func NewPipeline(ws *world.State, cfg PipelineConfig, log *zap.Logger) *Pipeline {
	if cfg.InputQueue <= 0 {
		cfg.InputQueue = 256
	}
	if cfg.InputPerTick <= 0 {
		cfg.InputPerTick = 64
	}
	p := &Pipeline{
		Runner:  coresys.NewRunner(),
		Input:   NewInputSystem(ws, cfg.InputQueue, cfg.InputPerTick, log),
		Physics: NewPhysicsSystem(ws),
		Render:  NewRenderSystem(ws, log, cfg.StatsInterval),
	}
	r := p.Runner
	r.Register(p.Input)
	if cfg.Control != nil {
		p.Remote = NewRemoteSystem(ws, cfg.Control, cfg.MaxActors, cfg.ControlPerTick, log)
		r.Register(p.Remote)
	}
	r.Register(NewEventDispatchSystem(ws.Bus()))
	r.Register(NewLifetimeSystem(ws, log))
	r.Register(NewMechanicsSystem(ws, log))
	r.Register(p.Physics)
	r.Register(NewSyncSystem(ws))
	r.Register(p.Render)
	if cfg.Saver != nil {
		p.Persist = NewPersistenceSystem(ws, cfg.Saver, log, cfg.SnapshotInterval)
		r.Register(p.Persist)
	}
	r.Register(NewCleanupSystem(ws))
	if cfg.Metrics != nil {
		rec := cfg.Metrics
		r.Register(NewMetricsSystem(ws, rec, cfg.MetricsInterval))
		r.Observe(func(ph coresys.Phase, d time.Duration) { rec.ObservePhase(ph.String(), d) })
		event.Subscribe(ws.Bus(), func(event.PoolDesynced) { rec.Desync() })
	}
	return p
}
