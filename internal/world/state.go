package world

import (
	"fmt"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/event"
	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/altplanet/engine/internal/mechanics"
	"github.com/altplanet/engine/internal/physics"
	"github.com/altplanet/engine/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// sceneOverhead is the number of nodes that are not actors: root, planet and sun.
const sceneOverhead = 3

// Actor is the bookkeeping component every spawned entity carries.
type Actor struct {
	ID       ecs.EntityID
	Name     string
	Shape    scene.Shape
	Control  mechanics.Kind
	Lifetime float64 // seconds; 0 lives forever
	Age      float64
	spawned  bool
}

// PhysTransform mirrors a body's pose for the renderer and points at the
// scene node that draws it.
type PhysTransform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Node     scene.NodeHandle
}

// Options sizes a State.
type Options struct {
	MaxActors     int
	MaxSceneNodes int
	Aspect        float64           // camera aspect ratio, default 16:9
	Steer         mechanics.Steerer // nil leaves script actors idle
	Bus           *event.Bus        // nil creates a private bus
}

// State is the client-side simulation state: the entity world, every
// per-actor store, the physics simulation, the controllers and the scene.
// All per-actor stores are filled and emptied in the same order, so their
// slot indices line up. Accessed only from the game loop goroutine.
type State struct {
	log *zap.Logger
	bus *event.Bus

	entities   *ecs.World
	actors     *ecs.Store[Actor]
	transforms *ecs.Store[PhysTransform]
	sim        *physics.Simulation
	mech       *mechanics.Manager

	graph      *scene.Graph
	camera     scene.Camera
	planetNode scene.NodeHandle
	sunNode    scene.NodeHandle

	tick    uint64
	elapsed float64
}

// New builds an empty State around a planet-less simulation. Call InitScene
// to populate it.
func New(opts Options, log *zap.Logger) (*State, error) {
	if opts.MaxActors < 1 {
		return nil, fmt.Errorf("world: max actors must be positive, got %d", opts.MaxActors)
	}
	if opts.MaxSceneNodes < opts.MaxActors+sceneOverhead {
		return nil, fmt.Errorf("world: %d scene nodes cannot hold %d actors", opts.MaxSceneNodes, opts.MaxActors)
	}
	if opts.Aspect <= 0 {
		opts.Aspect = 16.0 / 9.0
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}

	s := &State{
		log:      log,
		bus:      opts.Bus,
		entities: ecs.NewWorld(opts.MaxActors),
		camera:   scene.NewCamera(opts.Aspect),
	}

	var err error
	if s.graph, err = scene.NewGraph(opts.MaxSceneNodes, log); err != nil {
		return nil, err
	}
	if s.actors, err = ecs.NewStore(opts.MaxActors,
		slotpool.WithName[Actor]("actors"),
		slotpool.WithLogger[Actor](log),
		slotpool.WithTeardown(s.actorGone),
	); err != nil {
		return nil, err
	}
	if s.transforms, err = ecs.NewStore(opts.MaxActors,
		slotpool.WithName[PhysTransform]("actor_transforms"),
		slotpool.WithLogger[PhysTransform](log),
		slotpool.WithTeardown(s.dropNode),
	); err != nil {
		return nil, err
	}
	if s.sim, err = physics.NewSimulation(opts.MaxActors, physics.Planet{}, log); err != nil {
		return nil, err
	}
	if s.mech, err = mechanics.NewManager(opts.MaxActors, s.sim, opts.Steer, log); err != nil {
		return nil, err
	}

	// Release order mirrors Spawn order.
	reg := s.entities.Registry()
	reg.Register(s.actors)
	reg.Register(s.transforms)
	reg.Register(s.sim.Bodies())
	reg.Register(s.mech)
	return s, nil
}

func (s *State) Bus() *event.Bus                       { return s.bus }
func (s *State) Entities() *ecs.World                  { return s.entities }
func (s *State) Actors() *ecs.Store[Actor]             { return s.actors }
func (s *State) Transforms() *ecs.Store[PhysTransform] { return s.transforms }
func (s *State) Simulation() *physics.Simulation       { return s.sim }
func (s *State) Mechanics() *mechanics.Manager         { return s.mech }
func (s *State) Graph() *scene.Graph                   { return s.graph }
func (s *State) Camera() *scene.Camera                 { return &s.camera }
func (s *State) Tick() uint64                          { return s.tick }
func (s *State) Elapsed() float64                      { return s.elapsed }

// ActorCount is the number of live actors.
func (s *State) ActorCount() int { return s.actors.Len() }

// Advance records that one tick of dt seconds has passed.
func (s *State) Advance(dt float64) {
	s.tick++
	s.elapsed += dt
}

// Pools lists every fixed-capacity pool the state owns, for metrics.
func (s *State) Pools() []PoolStats {
	return []PoolStats{
		{Name: s.actors.Pool().Name(), Stats: s.actors.Pool().Stats()},
		{Name: s.transforms.Pool().Name(), Stats: s.transforms.Pool().Stats()},
		{Name: s.sim.Bodies().Pool().Name(), Stats: s.sim.Bodies().Pool().Stats()},
		{Name: s.mech.Controllers().Pool().Name(), Stats: s.mech.Controllers().Pool().Stats()},
		{Name: s.graph.Pool().Name(), Stats: s.graph.Pool().Stats()},
	}
}

// PoolStats names one pool's occupancy.
type PoolStats struct {
	Name string
	slotpool.Stats
}

// SyncTransforms copies each body's pose into its actor transform, then
// pushes every transform into its scene node. Misaligned slots are skipped,
// logged and published as event.PoolDesynced.
func (s *State) SyncTransforms() error {
	err := ecs.Each2(s.sim.Bodies(), s.transforms, func(b *physics.Body, pt *PhysTransform) {
		pt.Position = b.Position
		pt.Rotation = b.Rotation
	})
	if err != nil {
		s.log.Warn("body/transform pools out of step", zap.Error(err))
		event.Emit(s.bus, event.PoolDesynced{Pools: "rigid_bodies/actor_transforms", Err: err})
	}

	s.transforms.Each(func(pt *PhysTransform) {
		n, nerr := s.graph.Node(pt.Node)
		if nerr != nil {
			return
		}
		n.Transform.Position = pt.Position
		n.Transform.Rotation = pt.Rotation
	})
	return err
}

// UpdateCamera keeps the camera behind the player, if there is one.
func (s *State) UpdateCamera() {
	id, ok := s.mech.Player()
	if !ok {
		return
	}
	pt, ok := s.transforms.Get(id)
	if !ok {
		return
	}
	orientation, _ := s.mech.PlayerTargetOrientation()
	s.camera.Follow(pt.Position, orientation, s.sim.Planet().Up(pt.Position))
}

// AgeActors advances every actor's age and queues those whose lifetime ran
// out. Returns how many were queued.
func (s *State) AgeActors(dt float64) int {
	expired := 0
	s.actors.Each(func(a *Actor) {
		a.Age += dt
		if a.Lifetime > 0 && a.Age >= a.Lifetime {
			s.entities.MarkForDestruction(a.ID)
			expired++
		}
	})
	return expired
}

// Despawn queues id for removal at the end of the tick.
func (s *State) Despawn(id ecs.EntityID) error {
	if !s.entities.Alive(id) {
		return fmt.Errorf("despawn: %w: %s", ecs.ErrStaleEntity, id)
	}
	s.entities.MarkForDestruction(id)
	return nil
}

// FlushDestroyQueue removes every queued actor from all stores and the scene.
func (s *State) FlushDestroyQueue() ([]ecs.EntityID, error) {
	done, err := s.entities.FlushDestroyQueue()
	if err != nil {
		s.log.Warn("actor teardown incomplete", zap.Error(err))
	}
	return done, err
}

// Close tears down every actor and the scene.
func (s *State) Close() {
	s.Reset()
}

// Reset despawns every actor immediately and empties the scene.
func (s *State) Reset() {
	var ids []ecs.EntityID
	s.actors.Each(func(a *Actor) { ids = append(ids, a.ID) })
	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, s.entities.DestroyNow(id))
	}
	if errs != nil {
		s.log.Warn("reset left residue", zap.Error(errs))
	}
	s.graph.ClearAll()
	s.planetNode, s.sunNode = scene.NodeHandle{}, scene.NodeHandle{}
}

func (s *State) actorGone(a *Actor) {
	if !a.spawned {
		return
	}
	s.log.Debug("actor despawned", zap.Stringer("entity", a.ID), zap.String("name", a.Name))
	event.Emit(s.bus, event.ActorDespawned{EntityID: a.ID, Name: a.Name})
}

func (s *State) dropNode(pt *PhysTransform) {
	if pt.Node.IsZero() {
		return
	}
	if err := s.graph.Remove(pt.Node); err != nil {
		s.log.Warn("actor scene node already gone", zap.Stringer("node", pt.Node), zap.Error(err))
	}
}
