package system

import (
	"time"

	"github.com/altplanet/engine/internal/core/ecs"
	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/data"
	"github.com/altplanet/engine/internal/mechanics"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// CommandKind selects what a Command does.
type CommandKind int

const (
	CmdSignal CommandKind = iota
	CmdTurn
	CmdSpawn
	CmdDespawn
)

// Command is one input event queued from outside the game loop.
type Command struct {
	Kind   CommandKind
	Signal mechanics.Signal
	Held   bool
	Turn   float64
	Actor  data.ActorSpec
	Entity ecs.EntityID
}

// InputSystem drains the command queue into the world. Phase 0 (Input).
// Submit may be called from any goroutine; Update runs on the game loop.
type InputSystem struct {
	world      *world.State
	queue      chan Command
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(ws *world.State, queueSize, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		world:      ws,
		queue:      make(chan Command, queueSize),
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Submit queues cmd without blocking. Returns false when the queue is full.
func (s *InputSystem) Submit(cmd Command) bool {
	select {
	case s.queue <- cmd:
		return true
	default:
		return false
	}
}

func (s *InputSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case cmd := <-s.queue:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *InputSystem) apply(cmd Command) {
	mech := s.world.Mechanics()
	switch cmd.Kind {
	case CmdSignal:
		mech.SendSignal(cmd.Signal, cmd.Held)
	case CmdTurn:
		mech.SendTurn(cmd.Turn)
	case CmdSpawn:
		if _, err := s.world.Spawn(cmd.Actor); err != nil {
			s.log.Warn("spawn command failed", zap.String("name", cmd.Actor.Name), zap.Error(err))
		}
	case CmdDespawn:
		if err := s.world.Despawn(cmd.Entity); err != nil {
			s.log.Warn("despawn command failed", zap.Stringer("entity", cmd.Entity), zap.Error(err))
		}
	default:
		s.log.Warn("unknown command", zap.Int("kind", int(cmd.Kind)))
	}
}
