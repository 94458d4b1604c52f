package physics

import (
	"math"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	angularDamping = 0.5  // fraction of spin lost per second
	restingSpeed   = 0.05 // normal speed below which a contact comes to rest
)

// StepStats summarises one Step.
type StepStats struct {
	Dynamic  int
	Grounded int
}

// Simulation integrates every rigid body around one planet. Single
// goroutine, driven by PhysicsSystem.
type Simulation struct {
	bodies *ecs.Store[Body]
	planet Planet
	log    *zap.Logger
}

func NewSimulation(capacity int, planet Planet, log *zap.Logger) (*Simulation, error) {
	bodies, err := ecs.NewStore(capacity,
		slotpool.WithName[Body]("rigid_bodies"),
		slotpool.WithLogger[Body](log),
	)
	if err != nil {
		return nil, err
	}
	log.Debug("physics simulation created",
		zap.Float64("planet_radius", planet.Radius),
		zap.Float64("gravity", planet.Gravity))
	return &Simulation{bodies: bodies, planet: planet, log: log}, nil
}

// Bodies is the rigid-body store. Its slots are index-aligned with every
// other per-actor store of the same ecs.World.
func (s *Simulation) Bodies() *ecs.Store[Body] { return s.bodies }

func (s *Simulation) Planet() Planet     { return s.planet }
func (s *Simulation) SetPlanet(p Planet) { s.planet = p }

// Step advances every dynamic body by dt seconds.
func (s *Simulation) Step(dt float64) StepStats {
	var st StepStats
	if dt <= 0 {
		return st
	}
	s.bodies.Each(func(b *Body) {
		if b.Static() {
			b.Force, b.Torque = mgl64.Vec3{}, mgl64.Vec3{}
			return
		}
		s.integrate(b, dt)
		st.Dynamic++
		if b.Grounded {
			st.Grounded++
		}
	})
	return st
}

func (s *Simulation) integrate(b *Body, dt float64) {
	g := s.planet.GravityAt(b.Position)
	acc := g.Add(b.Force.Mul(1 / b.Mass))
	b.Velocity = b.Velocity.Add(acc.Mul(dt))

	if I := b.inertia(); I > 0 {
		b.AngularVelocity = b.AngularVelocity.Add(b.Torque.Mul(dt / I))
	}
	b.AngularVelocity = b.AngularVelocity.Mul(math.Max(0, 1-angularDamping*dt))

	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	spin := mgl64.Quat{W: 0, V: b.AngularVelocity}.Mul(b.Rotation).Scale(0.5 * dt)
	b.Rotation = b.Rotation.Add(spin).Normalize()

	b.Force, b.Torque = mgl64.Vec3{}, mgl64.Vec3{}
	s.resolveGround(b, g.Len(), dt)
}

// resolveGround keeps b above the planet surface: the normal velocity
// bounces with Restitution and the tangential velocity decelerates by
// Friction*g.
func (s *Simulation) resolveGround(b *Body, gravity, dt float64) {
	up := s.planet.Up(b.Position)
	minR := s.planet.Radius + b.HalfExtent
	if b.Position.Sub(s.planet.Center).Len() > minR {
		b.Grounded = false
		return
	}
	b.Position = s.planet.Center.Add(up.Mul(minR))

	vn := b.Velocity.Dot(up)
	vt := b.Velocity.Sub(up.Mul(vn))
	if vn < 0 {
		vn = -vn * b.Restitution
	}
	// one step of gravity must not be enough to lift a resting body
	if vn < restingSpeed+gravity*dt {
		vn = 0
	}

	decel := b.Friction * gravity * dt
	if speed := vt.Len(); speed <= decel {
		vt = mgl64.Vec3{}
	} else {
		vt = vt.Sub(vt.Mul(decel / speed))
	}
	b.Velocity = vt.Add(up.Mul(vn))
	b.Grounded = vn == 0
}
