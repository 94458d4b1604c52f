package mechanics

import (
	"errors"
	"fmt"
	"math"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/altplanet/engine/internal/physics"
	"github.com/altplanet/engine/internal/scripting"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var ErrPlayerExists = errors.New("mechanics: a player controller already exists")

// Steerer is the slice of scripting.Engine the manager uses.
type Steerer interface {
	Steer(ctx scripting.SteerContext) scripting.SteerResult
	Number(name string, fallback float64) float64
}

// Tuning holds the player movement constants.
type Tuning struct {
	Thrust   float64
	Lift     float64
	TurnRate float64
	SpeedUp  float64
}

// DefaultTuning is used for values the scripts do not set.
var DefaultTuning = Tuning{Thrust: 60, Lift: 120, TurnRate: 1.5, SpeedUp: 3}

// Manager owns every actor controller and turns them into forces on the
// physics bodies. The controller store is index-aligned with the body store.
type Manager struct {
	controllers *ecs.Store[Controller]
	sim         *physics.Simulation
	steer       Steerer
	tuning      Tuning
	log         *zap.Logger

	player    ecs.EntityID
	hasPlayer bool

	tick    uint64
	elapsed float64
}

// NewManager creates the controller store. steer may be nil, in which case
// script actors idle and DefaultTuning applies.
func NewManager(capacity int, sim *physics.Simulation, steer Steerer, log *zap.Logger) (*Manager, error) {
	controllers, err := ecs.NewStore(capacity,
		slotpool.WithName[Controller]("controllers"),
		slotpool.WithLogger[Controller](log),
	)
	if err != nil {
		return nil, err
	}
	tuning := DefaultTuning
	if steer != nil {
		tuning = Tuning{
			Thrust:   steer.Number("player_thrust", DefaultTuning.Thrust),
			Lift:     steer.Number("player_lift", DefaultTuning.Lift),
			TurnRate: steer.Number("player_turn_rate", DefaultTuning.TurnRate),
			SpeedUp:  steer.Number("speed_up_factor", DefaultTuning.SpeedUp),
		}
	}
	return &Manager{controllers: controllers, sim: sim, steer: steer, tuning: tuning, log: log}, nil
}

func (m *Manager) Controllers() *ecs.Store[Controller] { return m.controllers }
func (m *Manager) Tuning() Tuning                      { return m.tuning }

// Attach creates id's controller. At most one player may exist.
func (m *Manager) Attach(id ecs.EntityID, c Controller) (*Controller, error) {
	if c.Kind == KindPlayer && m.hasPlayer {
		return nil, fmt.Errorf("attach %s: %w", id, ErrPlayerExists)
	}
	if c.TargetOrientation == (mgl64.Quat{}) {
		c.TargetOrientation = mgl64.QuatIdent()
	}
	ctrl, err := m.controllers.Insert(id, c)
	if err != nil {
		return nil, err
	}
	if c.Kind == KindPlayer {
		m.player, m.hasPlayer = id, true
	}
	return ctrl, nil
}

// Release implements ecs.Releaser.
func (m *Manager) Release(id ecs.EntityID) error {
	if m.hasPlayer && m.player == id {
		m.hasPlayer = false
	}
	return m.controllers.Release(id)
}

// Player returns the player-controlled entity, if any.
func (m *Manager) Player() (ecs.EntityID, bool) { return m.player, m.hasPlayer }

func (m *Manager) playerController() *Controller {
	if !m.hasPlayer {
		return nil
	}
	c, _ := m.controllers.Get(m.player)
	return c
}

// SendSignal sets or clears a held input on the player controller.
func (m *Manager) SendSignal(s Signal, held bool) {
	c := m.playerController()
	if c == nil {
		return
	}
	if held {
		c.Signals |= s
	} else {
		c.Signals &^= s
	}
}

// SendTurn sets the player's yaw input in [-1, 1], scaled by the turn rate.
func (m *Manager) SendTurn(amount float64) {
	c := m.playerController()
	if c == nil {
		return
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		m.log.Warn("ignoring non-finite turn input", zap.Float64("amount", amount))
		return
	}
	c.Turn = mgl64.Clamp(amount, -1, 1) * m.tuning.TurnRate
}

// PlayerTargetOrientation is the player's facing, for the camera.
func (m *Manager) PlayerTargetOrientation() (mgl64.Quat, bool) {
	c := m.playerController()
	if c == nil {
		return mgl64.QuatIdent(), false
	}
	return c.TargetOrientation, true
}

// Update runs every controller against its body for one tick of dt seconds.
func (m *Manager) Update(dt float64) error {
	m.tick++
	m.elapsed += dt
	planet := m.sim.Planet()
	return ecs.Each2(m.controllers, m.sim.Bodies(), func(c *Controller, b *physics.Body) {
		if b.Static() {
			return
		}
		up := planet.Up(b.Position)
		switch c.Kind {
		case KindPlayer:
			m.drivePlayer(c, b, up, dt)
		case KindScript:
			m.driveScript(c, b, up, planet)
		}
	})
}

func (m *Manager) drivePlayer(c *Controller, b *physics.Body, up mgl64.Vec3, dt float64) {
	if c.Turn != 0 {
		c.TargetOrientation = mgl64.QuatRotate(c.Turn*dt, up).Mul(c.TargetOrientation).Normalize()
	}
	b.Rotation = c.TargetOrientation
	b.AngularVelocity = mgl64.Vec3{}

	forward := tangent(c.TargetOrientation.Rotate(mgl64.Vec3{0, 0, -1}), up)
	right := tangent(c.TargetOrientation.Rotate(mgl64.Vec3{1, 0, 0}), up)

	scale := 1.0
	if c.Signals.Has(SignalSpeedUp) {
		scale = m.tuning.SpeedUp
	}
	f := forward.Mul(c.Signals.axis(SignalForward, SignalBackward) * m.tuning.Thrust).
		Add(right.Mul(c.Signals.axis(SignalRight, SignalLeft) * m.tuning.Thrust)).
		Add(up.Mul(c.Signals.axis(SignalUp, SignalDown) * m.tuning.Lift)).
		Mul(scale)
	b.ApplyForce(f)
	c.Thrust = f.Len()
}

func (m *Manager) driveScript(c *Controller, b *physics.Body, up mgl64.Vec3, planet physics.Planet) {
	if m.steer == nil {
		c.Thrust = 0
		return
	}
	forward := b.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
	res := m.steer.Steer(scripting.SteerContext{
		Name:     c.Name,
		Tick:     m.tick,
		Time:     m.elapsed,
		Position: b.Position,
		Velocity: b.Velocity,
		Forward:  forward,
		Up:       up,
		Altitude: b.Position.Sub(planet.Center).Len() - planet.Radius,
		Grounded: b.Grounded,
	})
	f := tangent(forward, up).Mul(res.Thrust).Add(up.Mul(res.Lift))
	b.ApplyForce(f)
	b.AngularVelocity = up.Mul(res.Turn)
	c.TargetOrientation = b.Rotation
	c.Thrust = f.Len()
}

// tangent projects v onto the plane normal to up. Degenerate input yields
// the zero vector.
func tangent(v, up mgl64.Vec3) mgl64.Vec3 {
	t := v.Sub(up.Mul(v.Dot(up)))
	if t.Len() < 1e-9 {
		return mgl64.Vec3{}
	}
	return t.Normalize()
}
