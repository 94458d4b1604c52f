package handler

import (
	"fmt"
	"math"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/altplanet/engine/internal/data"
	"github.com/altplanet/engine/internal/mechanics"
	"github.com/altplanet/engine/internal/net"
	"github.com/altplanet/engine/internal/net/packet"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// Deps holds what every control handler needs. Handlers run on the game
// loop, so they may touch World directly.
type Deps struct {
	World     *world.State
	MaxActors int
	Log       *zap.Logger
}

// RegisterAll registers all control handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(*net.Session), r, deps)
		},
	)

	ready := []packet.SessionState{packet.StateReady}
	reg.Register(packet.C_OPCODE_SIGNAL, ready,
		func(sess any, r *packet.Reader) {
			HandleSignal(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_TURN, ready,
		func(sess any, r *packet.Reader) {
			HandleTurn(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_SPAWN, ready,
		func(sess any, r *packet.Reader) {
			HandleSpawn(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_DESPAWN, ready,
		func(sess any, r *packet.Reader) {
			HandleDespawn(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_STATUS, ready,
		func(sess any, r *packet.Reader) {
			HandleStatus(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateHandshake, packet.StateReady},
		func(sess any, r *packet.Reader) {
			HandleQuit(sess.(*net.Session), r, deps)
		},
	)
}

// HandleHello processes C_HELLO: [H version][S client name].
// A version mismatch is answered with S_ERROR and the session is closed.
func HandleHello(sess *net.Session, r *packet.Reader, deps *Deps) {
	version := r.ReadH()
	name := r.ReadS()
	if r.Short() || version != packet.ProtocolVersion {
		deps.Log.Warn("control handshake rejected",
			zap.Uint64("session", sess.ID), zap.Uint16("version", version))
		sendError(sess, packet.C_OPCODE_HELLO,
			fmt.Sprintf("protocol version %d required", packet.ProtocolVersion))
		sess.CloseAfterFlush()
		return
	}
	sess.ClientName = name
	sess.SetState(packet.StateReady)

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteH(packet.ProtocolVersion)
	w.WriteD(int32(deps.MaxActors))
	sess.Send(w.Bytes())
	deps.Log.Info("control client ready", zap.Uint64("session", sess.ID), zap.String("client", name))
}

// HandleSignal processes C_SIGNAL: [C signal bits][C held].
func HandleSignal(sess *net.Session, r *packet.Reader, deps *Deps) {
	bits := mechanics.Signal(r.ReadC())
	held := r.ReadC() != 0
	if r.Short() {
		sendError(sess, packet.C_OPCODE_SIGNAL, "truncated packet")
		return
	}
	mech := deps.World.Mechanics()
	if _, ok := mech.Player(); !ok {
		sendError(sess, packet.C_OPCODE_SIGNAL, "no player actor")
		return
	}
	mech.SendSignal(bits, held)
}

// HandleTurn processes C_TURN: [F amount in -1..1].
func HandleTurn(sess *net.Session, r *packet.Reader, deps *Deps) {
	amount := r.ReadF()
	if r.Short() {
		sendError(sess, packet.C_OPCODE_TURN, "truncated packet")
		return
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		sendError(sess, packet.C_OPCODE_TURN, "turn must be finite")
		return
	}
	mech := deps.World.Mechanics()
	if _, ok := mech.Player(); !ok {
		sendError(sess, packet.C_OPCODE_TURN, "no player actor")
		return
	}
	mech.SendTurn(amount)
}

// HandleSpawn processes C_SPAWN and answers S_SPAWNED with the new entity.
func HandleSpawn(sess *net.Session, r *packet.Reader, deps *Deps) {
	spec := data.ActorSpec{
		Name:    r.ReadS(),
		Shape:   r.ReadS(),
		Control: r.ReadS(),
	}
	spec.Position = data.Vec3{r.ReadF(), r.ReadF(), r.ReadF()}
	spec.Mass = r.ReadF()
	spec.HalfExtent = r.ReadF()
	spec.Lifetime = r.ReadF()
	if r.Short() {
		sendError(sess, packet.C_OPCODE_SPAWN, "truncated packet")
		return
	}
	spec.Normalize(fmt.Sprintf("remote-%d-%d", sess.ID, deps.World.Tick()))
	if err := spec.Validate(); err != nil {
		sendError(sess, packet.C_OPCODE_SPAWN, err.Error())
		return
	}

	id, err := deps.World.Spawn(spec)
	if err != nil {
		deps.Log.Warn("remote spawn failed", zap.String("name", spec.Name), zap.Error(err))
		sendError(sess, packet.C_OPCODE_SPAWN, err.Error())
		return
	}
	slot := -1
	if h, ok := deps.World.Actors().Handle(id); ok {
		slot = h.Index()
	}
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SPAWNED)
	w.WriteQ(uint64(id))
	w.WriteD(int32(slot))
	sess.Send(w.Bytes())
}

// HandleDespawn processes C_DESPAWN: [Q entity id]. Removal happens at the
// end of the tick.
func HandleDespawn(sess *net.Session, r *packet.Reader, deps *Deps) {
	id := ecs.EntityID(r.ReadQ())
	if r.Short() {
		sendError(sess, packet.C_OPCODE_DESPAWN, "truncated packet")
		return
	}
	if err := deps.World.Despawn(id); err != nil {
		sendError(sess, packet.C_OPCODE_DESPAWN, err.Error())
	}
}

// HandleStatus answers S_STATUS: [Q tick][D actors][32 bytes digest].
func HandleStatus(sess *net.Session, _ *packet.Reader, deps *Deps) {
	digest := deps.World.Digest()
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATUS)
	w.WriteQ(deps.World.Tick())
	w.WriteD(int32(deps.World.ActorCount()))
	w.WriteBytes(digest[:])
	sess.Send(w.Bytes())
}

func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info("control client quit", zap.Uint64("session", sess.ID))
	sess.CloseAfterFlush()
}

func sendError(sess *net.Session, opcode byte, msg string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ERROR)
	w.WriteC(opcode)
	w.WriteS(msg)
	sess.Send(w.Bytes())
}
