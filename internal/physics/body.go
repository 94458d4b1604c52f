package physics

import (
	"github.com/altplanet/engine/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultRestitution = 0.33
	DefaultFriction    = 0.4
)

// Body is one rigid body. Mass 0 makes it static.
type Body struct {
	Shape      scene.Shape
	HalfExtent float64 // bounding radius used for ground contact

	Mass            float64
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3 // rad/s, world space

	Force  mgl64.Vec3 // accumulated for the next step, cleared after it
	Torque mgl64.Vec3

	Restitution float64
	Friction    float64
	Grounded    bool
}

// NewBody returns a body at rest with the default contact material.
func NewBody(shape scene.Shape, halfExtent, mass float64, pos mgl64.Vec3, rot mgl64.Quat) Body {
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}
	return Body{
		Shape:       shape,
		HalfExtent:  halfExtent,
		Mass:        mass,
		Position:    pos,
		Rotation:    rot.Normalize(),
		Restitution: DefaultRestitution,
		Friction:    DefaultFriction,
	}
}

func (b *Body) Static() bool { return b.Mass <= 0 }

// ApplyForce adds a world-space force for the next step.
func (b *Body) ApplyForce(f mgl64.Vec3) { b.Force = b.Force.Add(f) }

// ApplyTorque adds a world-space torque for the next step.
func (b *Body) ApplyTorque(t mgl64.Vec3) { b.Torque = b.Torque.Add(t) }

// inertia is a uniform-sphere approximation.
func (b *Body) inertia() float64 {
	return 0.4 * b.Mass * b.HalfExtent * b.HalfExtent
}
