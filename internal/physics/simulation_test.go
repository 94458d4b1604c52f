package physics

import (
	"testing"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPlanet = Planet{Radius: 100, Gravity: 9.81}

func newSim(t *testing.T) *Simulation {
	t.Helper()
	s, err := NewSimulation(4, testPlanet, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestGravityPointsToCentre(t *testing.T) {
	g := testPlanet.GravityAt(mgl64.Vec3{0, 100, 0})
	assert.InDelta(t, -9.81, g[1], 1e-9)
	g = testPlanet.GravityAt(mgl64.Vec3{200, 0, 0})
	assert.InDelta(t, -9.81/4, g[0], 1e-9)
	assert.InDelta(t, 1, testPlanet.Up(mgl64.Vec3{0, 0, 5}).Len(), 1e-9)
}

func TestBodyFallsAndSettles(t *testing.T) {
	s := newSim(t)
	id := ecs.NewEntityID(0, 1)
	b, err := s.Bodies().Insert(id, NewBody(scene.ShapeBox, 1, 10, mgl64.Vec3{0, 110, 0}, mgl64.Quat{}))
	require.NoError(t, err)

	for i := 0; i < 60*10; i++ {
		s.Step(1.0 / 60)
	}
	assert.InDelta(t, 101, b.Position.Len(), 1e-6, "resting on the surface")
	assert.True(t, b.Grounded)
	assert.InDelta(t, 0, b.Velocity.Len(), 1e-6)
}

func TestStaticBodyNeverMoves(t *testing.T) {
	s := newSim(t)
	pos := mgl64.Vec3{0, 150, 0}
	b, err := s.Bodies().Insert(ecs.NewEntityID(0, 1), NewBody(scene.ShapeBox, 1, 0, pos, mgl64.QuatIdent()))
	require.NoError(t, err)
	b.ApplyForce(mgl64.Vec3{100, 0, 0})

	st := s.Step(0.1)
	assert.Equal(t, StepStats{}, st)
	assert.Equal(t, pos, b.Position)
	assert.Equal(t, mgl64.Vec3{}, b.Force)
}

func TestForceAndTorqueAreConsumed(t *testing.T) {
	s := newSim(t)
	b, err := s.Bodies().Insert(ecs.NewEntityID(0, 1), NewBody(scene.ShapeBox, 1, 2, mgl64.Vec3{0, 500, 0}, mgl64.QuatIdent()))
	require.NoError(t, err)
	b.ApplyForce(mgl64.Vec3{4, 0, 0})
	b.ApplyTorque(mgl64.Vec3{0, 1, 0})

	st := s.Step(0.5)
	assert.Equal(t, 1, st.Dynamic)
	assert.InDelta(t, 1, b.Velocity[0], 1e-9) // 4/2 * 0.5
	assert.Greater(t, b.AngularVelocity[1], 0.0)
	assert.Equal(t, mgl64.Vec3{}, b.Force)
	assert.InDelta(t, 1, b.Rotation.Len(), 1e-9)
	assert.False(t, b.Rotation.ApproxEqual(mgl64.QuatIdent()))
}

func TestFrictionStopsSliding(t *testing.T) {
	s := newSim(t)
	b, err := s.Bodies().Insert(ecs.NewEntityID(0, 1), NewBody(scene.ShapeBox, 1, 1, mgl64.Vec3{0, 101, 0}, mgl64.QuatIdent()))
	require.NoError(t, err)
	b.Velocity = mgl64.Vec3{2, 0, 0}
	for i := 0; i < 120; i++ {
		s.Step(1.0 / 60)
	}
	assert.InDelta(t, 0, b.Velocity.Len(), 1e-6)
}
