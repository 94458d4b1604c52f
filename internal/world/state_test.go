package world

import (
	"math"
	"testing"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/event"
	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/altplanet/engine/internal/data"
	"github.com/altplanet/engine/internal/mechanics"
	"github.com/altplanet/engine/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testScene() *data.Scene {
	return &data.Scene{
		Planet: data.Planet{Radius: 100, Gravity: 9.81},
		Actors: []data.ActorSpec{
			{Name: "pilot", Shape: "box", Control: "player", Position: data.Vec3{0, 102, 0}, Mass: 10, HalfExtent: 1},
			{Name: "drone", Shape: "icosahedron", Position: data.Vec3{5, 110, 0}, Mass: 2, HalfExtent: 1, Lifetime: 1},
			{Name: "beacon", Position: data.Vec3{0, 0, 101}, HalfExtent: 1},
		},
	}
}

func newState(t *testing.T, maxActors int) *State {
	t.Helper()
	s, err := New(Options{MaxActors: maxActors, MaxSceneNodes: maxActors + 8}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

// assertLockstep checks every per-actor pool holds the same slots.
func assertLockstep(t *testing.T, s *State) {
	t.Helper()
	n := s.actors.Len()
	assert.Equal(t, n, s.transforms.Len())
	assert.Equal(t, n, s.sim.Bodies().Len())
	assert.Equal(t, n, s.mech.Controllers().Len())
	s.actors.Each(func(a *Actor) {
		want, _ := s.actors.Handle(a.ID)
		for _, h := range []func(ecs.EntityID) (slotpool.Handle, bool){
			s.transforms.Handle, s.sim.Bodies().Handle, s.mech.Controllers().Handle,
		} {
			got, ok := h(a.ID)
			require.True(t, ok)
			assert.Equal(t, want.Index(), got.Index(), "actor %s", a.Name)
		}
	})
	assert.NoError(t, ecs.Each2(s.actors, s.transforms, func(*Actor, *PhysTransform) {}))
	assert.NoError(t, ecs.Each2(s.sim.Bodies(), s.mech.Controllers(), func(*physics.Body, *mechanics.Controller) {}))
}

func TestNewRejectsBadSizes(t *testing.T) {
	_, err := New(Options{MaxActors: 0, MaxSceneNodes: 10}, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = New(Options{MaxActors: 8, MaxSceneNodes: 10}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestInitScene(t *testing.T) {
	s := newState(t, 8)
	var spawned []event.ActorSpawned
	event.Subscribe(s.Bus(), func(ev event.ActorSpawned) { spawned = append(spawned, ev) })

	require.NoError(t, s.InitScene(testScene()))
	assert.Equal(t, 3, s.ActorCount())
	assert.Equal(t, 3+sceneOverhead, s.graph.Len())
	assertLockstep(t, s)

	id, ok := s.mech.Player()
	require.True(t, ok)
	a, _ := s.actors.Get(id)
	assert.Equal(t, "pilot", a.Name)

	// camera sits 16 units beside the player, looking at it
	cam := s.Camera().Transform
	assert.InDelta(t, 16, cam.Position.Sub(mgl64.Vec3{0, 102, 0}).Len(), 1e-9)
	toPlayer := mgl64.Vec3{0, 102, 0}.Sub(cam.Position).Normalize()
	assert.InDelta(t, 1, cam.Forward().Dot(toPlayer), 1e-6)

	st := s.graph.UpdateWorld()
	assert.Equal(t, 4, st.Objects, "planet and three actors")
	assert.Equal(t, 1, st.Lights)

	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	require.Len(t, spawned, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{spawned[0].Slot, spawned[1].Slot, spawned[2].Slot})

	assert.ErrorIs(t, s.InitScene(testScene()), ErrPopulated)
}

func TestSpawnRollbackRestoresPools(t *testing.T) {
	s := newState(t, 4)
	require.NoError(t, s.InitScene(testScene()))
	nodes := s.graph.Len()

	// a second player fails at the controller, the last step
	_, err := s.Spawn(data.ActorSpec{Name: "intruder", Control: "player", Position: data.Vec3{0, 120, 0}, Mass: 1})
	require.ErrorIs(t, err, mechanics.ErrPlayerExists)
	assert.Equal(t, 3, s.ActorCount())
	assert.Equal(t, nodes, s.graph.Len(), "scene node removed")
	assertLockstep(t, s)

	// the next spawn takes the same slot everywhere
	id, err := s.Spawn(data.ActorSpec{Name: "late", Position: data.Vec3{0, 120, 0}, Mass: 1})
	require.NoError(t, err)
	h, _ := s.actors.Handle(id)
	assert.Equal(t, 3, h.Index())
	assertLockstep(t, s)

	// pools are full now
	_, err = s.Spawn(data.ActorSpec{Name: "overflow", Mass: 1})
	require.ErrorIs(t, err, ecs.ErrEntityCapacity)
	assertLockstep(t, s)

	_, err = s.Spawn(data.ActorSpec{Name: "cone", Shape: "cone"})
	assert.Error(t, err)
}

func TestSpawnRejectsNonFiniteSpec(t *testing.T) {
	s := newState(t, 4)
	require.NoError(t, s.InitScene(testScene()))
	before := s.Digest()

	_, err := s.Spawn(data.ActorSpec{Name: "ghost", Position: data.Vec3{math.NaN(), 0, 0}, Mass: math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be finite")
	assert.Equal(t, 3, s.ActorCount())
	assert.Equal(t, before, s.Digest())
	assertLockstep(t, s)
}

func TestDespawnReusesSlotsInStep(t *testing.T) {
	s := newState(t, 8)
	require.NoError(t, s.InitScene(testScene()))
	var gone []string
	event.Subscribe(s.Bus(), func(ev event.ActorDespawned) { gone = append(gone, ev.Name) })

	drone := findActor(t, s, "drone")
	droneSlot, _ := s.actors.Handle(drone)
	require.NoError(t, s.Despawn(drone))
	require.NoError(t, s.Despawn(drone), "queuing twice is harmless")
	done, err := s.FlushDestroyQueue()
	require.NoError(t, err)
	assert.Equal(t, []ecs.EntityID{drone}, done)
	assert.Equal(t, 2, s.ActorCount())
	assert.Equal(t, 2+sceneOverhead, s.graph.Len())
	assertLockstep(t, s)
	assert.Error(t, s.Despawn(drone), "stale id")

	id, err := s.Spawn(data.ActorSpec{Name: "replacement", Position: data.Vec3{0, 130, 0}, Mass: 1})
	require.NoError(t, err)
	h, _ := s.actors.Handle(id)
	assert.Equal(t, droneSlot.Index(), h.Index(), "LIFO reuse")
	assertLockstep(t, s)

	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	assert.Equal(t, []string{"drone"}, gone)
}

func TestSyncTransformsFollowsPhysics(t *testing.T) {
	s := newState(t, 8)
	require.NoError(t, s.InitScene(testScene()))

	for i := 0; i < 30; i++ {
		require.NoError(t, s.mech.Update(1.0/60))
		s.sim.Step(1.0 / 60)
		require.NoError(t, s.SyncTransforms())
	}
	drone := findActor(t, s, "drone")
	b, _ := s.Body(drone)
	pt, _ := s.transforms.Get(drone)
	assert.Equal(t, b.Position, pt.Position)
	assert.Less(t, pt.Position[1], 110.0, "falling")

	n, err := s.graph.Node(pt.Node)
	require.NoError(t, err)
	assert.Equal(t, pt.Position, n.Transform.Position)
	assert.Equal(t, pt.Rotation, n.Transform.Rotation)

	before := s.Camera().Transform.Position
	s.mech.SendSignal(mechanics.SignalForward, true)
	for i := 0; i < 30; i++ {
		require.NoError(t, s.mech.Update(1.0/60))
		s.sim.Step(1.0 / 60)
		require.NoError(t, s.SyncTransforms())
	}
	s.UpdateCamera()
	assert.NotEqual(t, before, s.Camera().Transform.Position)
}

func TestSyncTransformsReportsDesync(t *testing.T) {
	s := newState(t, 8)
	require.NoError(t, s.InitScene(testScene()))
	var desyncs []event.PoolDesynced
	event.Subscribe(s.Bus(), func(ev event.PoolDesynced) { desyncs = append(desyncs, ev) })

	// break lockstep behind the state's back
	require.NoError(t, s.sim.Bodies().Release(findActor(t, s, "drone")))

	err := s.SyncTransforms()
	require.ErrorIs(t, err, slotpool.ErrPoolDesync)
	var de *slotpool.DesyncError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)

	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	require.Len(t, desyncs, 1)
	assert.Equal(t, "rigid_bodies/actor_transforms", desyncs[0].Pools)
}

func TestLifetimeExpiry(t *testing.T) {
	s := newState(t, 8)
	require.NoError(t, s.InitScene(testScene()))

	assert.Equal(t, 0, s.AgeActors(0.6))
	assert.Equal(t, 1, s.AgeActors(0.6))
	assert.Equal(t, 1, s.entities.Pending())
	_, err := s.FlushDestroyQueue()
	require.NoError(t, err)
	assert.Equal(t, 2, s.ActorCount())
	assertLockstep(t, s)
}

func TestDigestIsDeterministic(t *testing.T) {
	run := func() *State {
		s := newState(t, 8)
		require.NoError(t, s.InitScene(testScene()))
		for i := 0; i < 120; i++ {
			require.NoError(t, s.mech.Update(1.0/60))
			s.sim.Step(1.0 / 60)
			require.NoError(t, s.SyncTransforms())
		}
		return s
	}
	a, b := run(), run()
	assert.Equal(t, a.Digest(), b.Digest())

	bd, ok := b.Body(findActor(t, b, "drone"))
	require.True(t, ok)
	bd.Velocity = bd.Velocity.Add(mgl64.Vec3{1, 0, 0})
	b.sim.Step(1.0 / 60)
	require.NoError(t, b.SyncTransforms())
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestSnapshotAndReset(t *testing.T) {
	s := newState(t, 8)
	require.NoError(t, s.InitScene(testScene()))
	s.Advance(0.5)

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, s.Digest(), snap.Digest)
	require.Len(t, snap.Actors, 3)
	assert.Equal(t, "pilot", snap.Actors[0].Name)
	assert.Equal(t, mgl64.Vec3{0, 102, 0}, snap.Actors[0].Position)
	assert.Equal(t, 2, snap.Actors[2].Slot)

	s.Reset()
	assert.Equal(t, 0, s.ActorCount())
	assert.Equal(t, 1, s.graph.Len(), "root only")
	assertLockstep(t, s)
	_, ok := s.mech.Player()
	assert.False(t, ok)
	require.NoError(t, s.InitScene(testScene()))
}

func findActor(t *testing.T, s *State, name string) ecs.EntityID {
	t.Helper()
	var id ecs.EntityID
	s.actors.Each(func(a *Actor) {
		if a.Name == name {
			id = a.ID
		}
	})
	require.False(t, id.IsZero(), "actor %q", name)
	return id
}
