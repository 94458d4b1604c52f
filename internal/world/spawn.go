package world

import (
	"errors"
	"fmt"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/event"
	"github.com/altplanet/engine/internal/data"
	"github.com/altplanet/engine/internal/mechanics"
	"github.com/altplanet/engine/internal/physics"
	"github.com/altplanet/engine/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	sunDistance   = 50000.0
	cameraBackOff = 16.0
)

var ErrPopulated = errors.New("world: scene already initialised")

var sunColor = mgl64.Vec4{0.85, 0.85, 0.85, 1}

// Spawn creates one actor: entity, scene node, actor record, transform,
// body and controller, in that order. Any failure undoes the steps already
// taken, so every per-actor pool is left exactly as before the call.
func (s *State) Spawn(spec data.ActorSpec) (ecs.EntityID, error) {
	if err := spec.Validate(); err != nil {
		return 0, fmt.Errorf("spawn: %w", err)
	}
	shape, err := scene.ParseShape(spec.Shape)
	if err != nil {
		return 0, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}
	kind, err := mechanics.ParseKind(spec.Control)
	if err != nil {
		return 0, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}
	pos := mgl64.Vec3(spec.Position)
	rot := eulerToQuat(spec.Rotation)
	halfExtent := spec.HalfExtent
	if halfExtent <= 0 {
		halfExtent = 1
	}

	id, err := s.entities.CreateEntity()
	if err != nil {
		return 0, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}

	node, err := s.graph.AddNode(s.graph.Root())
	if err != nil {
		return 0, s.rollback(id, scene.NodeHandle{}, fmt.Errorf("spawn %q: %w", spec.Name, err))
	}
	n, _ := s.graph.Node(node)
	n.Transform.Position = pos
	n.Transform.Rotation = rot
	n.Transform.Scale = mgl64.Vec3{halfExtent, halfExtent, halfExtent}
	if err := s.graph.SetObject(node, scene.Object{Shape: shape, Color: spec.Color}); err != nil {
		return 0, s.rollback(id, node, err)
	}

	actor, err := s.actors.Insert(id, Actor{ID: id, Name: spec.Name, Shape: shape, Control: kind, Lifetime: spec.Lifetime})
	if err != nil {
		return 0, s.rollback(id, node, fmt.Errorf("spawn %q: actor: %w", spec.Name, err))
	}
	// From here the transform owns the node and removes it on release.
	if _, err := s.transforms.Insert(id, PhysTransform{Position: pos, Rotation: rot, Node: node}); err != nil {
		return 0, s.rollback(id, node, fmt.Errorf("spawn %q: transform: %w", spec.Name, err))
	}
	if _, err := s.sim.Bodies().Insert(id, physics.NewBody(shape, halfExtent, spec.Mass, pos, rot)); err != nil {
		return 0, s.rollback(id, scene.NodeHandle{}, fmt.Errorf("spawn %q: body: %w", spec.Name, err))
	}
	if _, err := s.mech.Attach(id, mechanics.Controller{Kind: kind, Name: spec.Name, TargetOrientation: rot}); err != nil {
		return 0, s.rollback(id, scene.NodeHandle{}, fmt.Errorf("spawn %q: controller: %w", spec.Name, err))
	}

	actor.spawned = true
	slot := -1
	if h, ok := s.actors.Handle(id); ok {
		slot = h.Index()
	}
	s.log.Debug("actor spawned",
		zap.Stringer("entity", id),
		zap.String("name", spec.Name),
		zap.Stringer("control", kind),
		zap.Int("slot", slot))
	event.Emit(s.bus, event.ActorSpawned{EntityID: id, Name: spec.Name, Slot: slot})
	return id, nil
}

// rollback releases whatever id acquired so far. node is removed only when
// no transform took ownership of it yet.
func (s *State) rollback(id ecs.EntityID, node scene.NodeHandle, cause error) error {
	err := cause
	if !s.transforms.Has(id) && !node.IsZero() {
		err = multierr.Append(err, s.graph.Remove(node))
	}
	if derr := s.entities.DestroyNow(id); derr != nil {
		err = multierr.Append(err, derr)
	}
	s.log.Warn("actor spawn rolled back", zap.Stringer("entity", id), zap.Error(cause))
	return err
}

// InitScene populates an empty state from a scene file: the planet, a sun
// light over the scene's focus point, and every actor. The camera starts
// behind the player, or above the focus point when there is none.
func (s *State) InitScene(sc *data.Scene) error {
	if s.actors.Len() > 0 || !s.planetNode.IsZero() {
		return ErrPopulated
	}
	planet := physics.Planet{Radius: sc.Planet.Radius, Gravity: sc.Planet.Gravity}
	s.sim.SetPlanet(planet)

	var err error
	if s.planetNode, err = s.graph.AddNode(s.graph.Root()); err != nil {
		return fmt.Errorf("init scene: planet node: %w", err)
	}
	pn, _ := s.graph.Node(s.planetNode)
	pn.Transform.Scale = mgl64.Vec3{planet.Radius, planet.Radius, planet.Radius}
	if err := s.graph.SetObject(s.planetNode, scene.Object{Shape: scene.ShapePlanet, Color: mgl64.Vec4{0.4, 0.5, 0.3, 1}}); err != nil {
		return err
	}

	focus := mgl64.Vec3(sc.Sun())
	up := planet.Up(focus)
	if s.sunNode, err = s.graph.AddNode(s.graph.Root()); err != nil {
		return fmt.Errorf("init scene: sun node: %w", err)
	}
	sun := focus.Add(up.Mul(sunDistance))
	if err := s.graph.AddLight(s.sunNode, scene.Light{Position: sun.Vec4(1), Color: sunColor}); err != nil {
		return err
	}

	for _, spec := range sc.Actors {
		if _, err := s.Spawn(spec); err != nil {
			return fmt.Errorf("init scene: %w", err)
		}
	}

	target := focus
	if id, ok := s.mech.Player(); ok {
		pt, _ := s.transforms.Get(id)
		target = pt.Position
		up = planet.Up(target)
	}
	s.camera.Transform.LookAt(target.Add(backOffset(up)), target, up)

	s.log.Info("scene initialised",
		zap.Float64("planet_radius", planet.Radius),
		zap.Int("actors", s.actors.Len()),
		zap.Int("scene_nodes", s.graph.Len()))
	return nil
}

// backOffset places the camera beside the target, perpendicular to up.
func backOffset(up mgl64.Vec3) mgl64.Vec3 {
	side := up.Cross(mgl64.Vec3{1, 0, 0})
	if side.Len() < 1e-6 {
		side = up.Cross(mgl64.Vec3{0, 0, 1})
	}
	return side.Normalize().Mul(cameraBackOff)
}

// eulerToQuat converts scene-file Euler degrees (X, Y, Z), applied yaw first.
func eulerToQuat(deg data.Vec3) mgl64.Quat {
	if deg == (data.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return mgl64.AnglesToQuat(
		mgl64.DegToRad(deg[1]),
		mgl64.DegToRad(deg[0]),
		mgl64.DegToRad(deg[2]),
		mgl64.YXZ,
	).Normalize()
}
