package scene

import "github.com/go-gl/mathgl/mgl64"

// Transform is a node's local position, orientation and scale.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Matrix is translation * rotation * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Forward is the local -Z axis in parent space.
func (t Transform) Forward() mgl64.Vec3 { return t.Rotation.Rotate(mgl64.Vec3{0, 0, -1}) }
func (t Transform) Right() mgl64.Vec3   { return t.Rotation.Rotate(mgl64.Vec3{1, 0, 0}) }
func (t Transform) Up() mgl64.Vec3      { return t.Rotation.Rotate(mgl64.Vec3{0, 1, 0}) }

// LookAt moves the transform to eye and turns its forward axis toward target.
func (t *Transform) LookAt(eye, target, up mgl64.Vec3) {
	view := mgl64.LookAtV(eye, target, up)
	t.Position = eye
	t.Rotation = mgl64.Mat4ToQuat(view).Inverse().Normalize()
}
