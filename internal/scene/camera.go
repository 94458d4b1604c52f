package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera with its own transform, outside the graph.
type Camera struct {
	Transform Transform
	FovY      float64
	Aspect    float64
	Near      float64
	Far       float64
}

func NewCamera(aspect float64) Camera {
	return Camera{
		Transform: IdentityTransform(),
		FovY:      math.Pi / 4,
		Aspect:    aspect,
		Near:      0.1,
		Far:       1_000_000,
	}
}

func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

func (c *Camera) View() mgl64.Mat4 {
	p := c.Transform.Position
	return mgl64.LookAtV(p, p.Add(c.Transform.Forward()), c.Transform.Up())
}

// Follow places the camera 40 units behind and 30 above target, facing it.
// forward is derived from the target's orientation.
func (c *Camera) Follow(target mgl64.Vec3, orientation mgl64.Quat, up mgl64.Vec3) {
	forward := orientation.Rotate(mgl64.Vec3{0, 0, -1})
	offset := forward.Mul(-40).Add(up.Mul(30))
	c.Transform.LookAt(target.Add(offset), target, up)
}
