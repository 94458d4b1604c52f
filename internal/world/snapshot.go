package world

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/altplanet/engine/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/crypto/blake2b"
)

// ActorState is one actor's pose in a Snapshot.
type ActorState struct {
	Slot     int
	EntityID ecs.EntityID
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
	Grounded bool
}

// Snapshot is a point-in-time copy of every actor, in slot order.
type Snapshot struct {
	Tick    uint64
	Elapsed float64
	TakenAt time.Time
	Digest  [32]byte
	Actors  []ActorState
}

// Digest hashes every actor transform in slot order with BLAKE2b-256. Two
// states that ran the same scene for the same ticks hash identically.
func (s *State) Digest() [32]byte {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	s.transforms.Pool().ForEachConst(func(hd slotpool.Handle, pt PhysTransform) {
		binary.LittleEndian.PutUint64(buf[:], uint64(hd.Index()))
		h.Write(buf[:])
		for _, v := range pt.Position {
			put(v)
		}
		put(pt.Rotation.W)
		for _, v := range pt.Rotation.V {
			put(v)
		}
	})
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Snapshot copies every actor's current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:    s.tick,
		Elapsed: s.elapsed,
		TakenAt: time.Now().UTC(),
		Digest:  s.Digest(),
		Actors:  make([]ActorState, 0, s.actors.Len()),
	}
	s.actors.Each(func(a *Actor) {
		st := ActorState{EntityID: a.ID, Name: a.Name}
		if h, ok := s.actors.Handle(a.ID); ok {
			st.Slot = h.Index()
		}
		if pt, ok := s.transforms.Get(a.ID); ok {
			st.Position, st.Rotation = pt.Position, pt.Rotation
		}
		if b, ok := s.sim.Bodies().Get(a.ID); ok {
			st.Velocity, st.Grounded = b.Velocity, b.Grounded
		}
		snap.Actors = append(snap.Actors, st)
	})
	return snap
}

// Body returns id's rigid body.
func (s *State) Body(id ecs.EntityID) (*physics.Body, bool) {
	return s.sim.Bodies().Get(id)
}
