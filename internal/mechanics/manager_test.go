package mechanics

import (
	"math"
	"testing"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/physics"
	"github.com/altplanet/engine/internal/scene"
	"github.com/altplanet/engine/internal/scripting"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSteer struct {
	calls []scripting.SteerContext
	res   scripting.SteerResult
}

func (f *fakeSteer) Steer(ctx scripting.SteerContext) scripting.SteerResult {
	f.calls = append(f.calls, ctx)
	return f.res
}

func (f *fakeSteer) Number(name string, fallback float64) float64 {
	if name == "player_thrust" {
		return 100
	}
	return fallback
}

type fixture struct {
	sim *physics.Simulation
	mgr *Manager
	ids *ecs.EntityPool
}

func newFixture(t *testing.T, steer Steerer) *fixture {
	t.Helper()
	sim, err := physics.NewSimulation(4, physics.Planet{Radius: 100, Gravity: 9.81}, zap.NewNop())
	require.NoError(t, err)
	mgr, err := NewManager(4, sim, steer, zap.NewNop())
	require.NoError(t, err)
	return &fixture{sim: sim, mgr: mgr, ids: ecs.NewEntityPool(4)}
}

func (f *fixture) spawn(t *testing.T, c Controller, pos mgl64.Vec3) (ecs.EntityID, *physics.Body) {
	t.Helper()
	id, err := f.ids.Create()
	require.NoError(t, err)
	b, err := f.sim.Bodies().Insert(id, physics.NewBody(scene.ShapeBox, 1, 10, pos, mgl64.QuatIdent()))
	require.NoError(t, err)
	_, err = f.mgr.Attach(id, c)
	require.NoError(t, err)
	return id, b
}

func TestTuningFromScripts(t *testing.T) {
	f := newFixture(t, &fakeSteer{})
	assert.Equal(t, 100.0, f.mgr.Tuning().Thrust)
	assert.Equal(t, DefaultTuning.Lift, f.mgr.Tuning().Lift)

	f = newFixture(t, nil)
	assert.Equal(t, DefaultTuning, f.mgr.Tuning())
}

func TestOnlyOnePlayer(t *testing.T) {
	f := newFixture(t, nil)
	id, _ := f.spawn(t, Controller{Kind: KindPlayer, Name: "me"}, mgl64.Vec3{0, 101, 0})

	other, err := f.ids.Create()
	require.NoError(t, err)
	_, err = f.mgr.Attach(other, Controller{Kind: KindPlayer})
	require.ErrorIs(t, err, ErrPlayerExists)

	got, ok := f.mgr.Player()
	require.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, f.mgr.Release(id))
	_, ok = f.mgr.Player()
	assert.False(t, ok)
	_, ok = f.mgr.PlayerTargetOrientation()
	assert.False(t, ok)
}

func TestPlayerForwardThrust(t *testing.T) {
	f := newFixture(t, nil)
	_, b := f.spawn(t, Controller{Kind: KindPlayer, Name: "me"}, mgl64.Vec3{0, 101, 0})

	f.mgr.SendSignal(SignalForward, true)
	require.NoError(t, f.mgr.Update(0.1))
	assert.InDelta(t, 60, b.Force.Len(), 1e-9)
	assert.InDelta(t, -60, b.Force[2], 1e-9, "identity faces -Z")

	f.sim.Step(0.1)
	assert.Less(t, b.Velocity[2], 0.0)

	f.mgr.SendSignal(SignalForward, false)
	f.mgr.SendSignal(SignalUp|SignalSpeedUp, true)
	require.NoError(t, f.mgr.Update(0.1))
	// the first step moved the body, so local up is no longer +Y
	up := f.sim.Planet().Up(b.Position)
	assert.InDelta(t, 120*3, b.Force.Dot(up), 1e-9)
}

func TestPlayerTurnRotatesAboutUp(t *testing.T) {
	f := newFixture(t, nil)
	_, b := f.spawn(t, Controller{Kind: KindPlayer}, mgl64.Vec3{0, 101, 0})

	f.mgr.SendTurn(5) // clamped to 1
	require.NoError(t, f.mgr.Update(1))

	q, ok := f.mgr.PlayerTargetOrientation()
	require.True(t, ok)
	want := mgl64.QuatRotate(DefaultTuning.TurnRate, mgl64.Vec3{0, 1, 0})
	assert.True(t, q.ApproxEqualThreshold(want, 1e-9))
	assert.Equal(t, q, b.Rotation)
}

func TestNonFiniteTurnIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	_, b := f.spawn(t, Controller{Kind: KindPlayer}, mgl64.Vec3{0, 101, 0})

	f.mgr.SendTurn(0.5)
	f.mgr.SendTurn(math.NaN())
	f.mgr.SendTurn(math.Inf(-1))
	require.NoError(t, f.mgr.Update(1))

	q, ok := f.mgr.PlayerTargetOrientation()
	require.True(t, ok)
	want := mgl64.QuatRotate(0.5*DefaultTuning.TurnRate, mgl64.Vec3{0, 1, 0})
	assert.True(t, q.ApproxEqualThreshold(want, 1e-9), "last finite turn still applies")
	assert.False(t, math.IsNaN(b.Rotation.W))
}

func TestScriptSteering(t *testing.T) {
	steer := &fakeSteer{res: scripting.SteerResult{Thrust: 10, Lift: 5, Turn: 0.25}}
	f := newFixture(t, steer)
	_, b := f.spawn(t, Controller{Kind: KindScript, Name: "drone"}, mgl64.Vec3{0, 110, 0})

	require.NoError(t, f.mgr.Update(0.5))
	require.Len(t, steer.calls, 1)
	ctx := steer.calls[0]
	assert.Equal(t, "drone", ctx.Name)
	assert.Equal(t, uint64(1), ctx.Tick)
	assert.InDelta(t, 10, ctx.Altitude, 1e-9)
	assert.Equal(t, [3]float64{0, 1, 0}, ctx.Up)

	assert.InDelta(t, -10, b.Force[2], 1e-9)
	assert.InDelta(t, 5, b.Force[1], 1e-9)
	assert.InDelta(t, 0.25, b.AngularVelocity[1], 1e-9)
}

func TestUpdateReportsDesync(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.ids.Create()
	require.NoError(t, err)
	// controller without a body breaks lockstep
	_, err = f.mgr.Attach(id, Controller{Kind: KindScript})
	require.NoError(t, err)
	assert.Error(t, f.mgr.Update(0.1))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("player")
	require.NoError(t, err)
	assert.Equal(t, KindPlayer, k)
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindScript, k)
	_, err = ParseKind("ghost")
	assert.Error(t, err)
}
