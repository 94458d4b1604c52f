package physics

import "github.com/go-gl/mathgl/mgl64"

// Planet is the spherical ground every body falls toward.
type Planet struct {
	Center  mgl64.Vec3
	Radius  float64
	Gravity float64 // m/s² at the surface
}

// Up is the local up direction at p.
func (pl Planet) Up(p mgl64.Vec3) mgl64.Vec3 {
	d := p.Sub(pl.Center)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	return d.Normalize()
}

// GravityAt points toward the centre; magnitude falls off with distance
// squared above the surface.
func (pl Planet) GravityAt(p mgl64.Vec3) mgl64.Vec3 {
	d := p.Sub(pl.Center)
	r := d.Len()
	if r == 0 || pl.Radius <= 0 {
		return mgl64.Vec3{0, -pl.Gravity, 0}
	}
	g := pl.Gravity
	if r > pl.Radius {
		g *= (pl.Radius * pl.Radius) / (r * r)
	}
	return d.Mul(-g / r)
}

// SurfacePoint is the point on the surface directly below p.
func (pl Planet) SurfacePoint(p mgl64.Vec3) mgl64.Vec3 {
	return pl.Center.Add(pl.Up(p).Mul(pl.Radius))
}
