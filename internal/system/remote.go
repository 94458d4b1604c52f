package system

import (
	"errors"
	"fmt"
	"time"

	coresys "github.com/altplanet/engine/internal/core/system"
	"github.com/altplanet/engine/internal/handler"
	"github.com/altplanet/engine/internal/net"
	"github.com/altplanet/engine/internal/net/packet"
	"github.com/altplanet/engine/internal/world"
	"go.uber.org/zap"
)

// RemoteSystem feeds remote-control packets into the world. Phase 0
// (Input), after InputSystem. Handlers run here on the game loop and their
// replies are flushed before the phase ends.
type RemoteSystem struct {
	server     *net.Server
	registry   *packet.Registry
	sessions   []*net.Session // arrival order
	maxPerTick int
	log        *zap.Logger
}

func NewRemoteSystem(ws *world.State, srv *net.Server, maxActors, maxPerTick int, log *zap.Logger) *RemoteSystem {
	reg := packet.NewRegistry(log)
	handler.RegisterAll(reg, &handler.Deps{World: ws, MaxActors: maxActors, Log: log})
	if maxPerTick <= 0 {
		maxPerTick = 32
	}
	return &RemoteSystem{
		server:     srv,
		registry:   reg,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *RemoteSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Sessions is the number of connected control clients.
func (s *RemoteSystem) Sessions() int { return len(s.sessions) }

func (s *RemoteSystem) Update(_ time.Duration) {
	s.acceptSessions()
	s.reapSessions()

	for _, sess := range s.sessions {
		s.drain(sess)
	}
	for _, sess := range s.sessions {
		sess.FlushOutput()
	}
}

func (s *RemoteSystem) acceptSessions() {
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.sessions = append(s.sessions, sess)
		default:
			return
		}
	}
}

func (s *RemoteSystem) reapSessions() {
	dead := false
drain:
	for {
		select {
		case id := <-s.server.DeadSessions():
			s.log.Debug("control session closed", zap.Uint64("session", id))
			dead = true
		default:
			break drain
		}
	}
	if !dead {
		return
	}
	live := s.sessions[:0]
	for _, sess := range s.sessions {
		if !sess.IsClosed() {
			live = append(live, sess)
		}
	}
	clear(s.sessions[len(live):])
	s.sessions = live
}

func (s *RemoteSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			err := s.registry.Dispatch(sess, sess.State(), data)
			if errors.Is(err, packet.ErrStateNotAllowed) {
				w := packet.NewWriterWithOpcode(packet.S_OPCODE_ERROR)
				w.WriteC(data[0])
				w.WriteS(fmt.Sprintf("opcode 0x%02X not allowed in state %s", data[0], sess.State()))
				sess.Send(w.Bytes())
			} else if err != nil {
				s.log.Warn("control packet failed", zap.Uint64("session", sess.ID), zap.Error(err))
			}
		default:
			return
		}
	}
}

// Close disconnects every client and stops the listener.
func (s *RemoteSystem) Close() {
	s.server.Shutdown()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.sessions = nil
}
