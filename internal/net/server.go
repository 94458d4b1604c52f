package net

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	pendingSessions = 64
	acceptBackoff   = 50 * time.Millisecond
)

// Server owns the remote-control listener. Sessions cross to the game loop
// over NewSessions; closed session IDs come back over DeadSessions.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	stopped  atomic.Bool

	accepted chan *Session
	dead     chan uint64

	inSize, outSize, pktPerSec int

	log *zap.Logger
}

func NewServer(bindAddr string, inSize, outSize, pktPerSec int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:  ln,
		accepted:  make(chan *Session, pendingSessions),
		dead:      make(chan uint64, pendingSessions),
		inSize:    inSize,
		outSize:   outSize,
		pktPerSec: pktPerSec,
		log:       log,
	}, nil
}

// AcceptLoop accepts clients until Shutdown. Run it in its own goroutine.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept failed", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}
		s.admit(conn)
	}
}

func (s *Server) admit(conn net.Conn) {
	sess := NewSession(conn, s.nextID.Add(1), s.inSize, s.outSize, s.pktPerSec, s.log)
	sess.onClose = s.NotifyDead
	select {
	case s.accepted <- sess:
		sess.Start()
		s.log.Info("control client connected", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
	default:
		s.log.Warn("too many pending clients, rejecting", zap.String("ip", sess.IP))
		_ = conn.Close()
	}
}

func (s *Server) NewSessions() <-chan *Session { return s.accepted }
func (s *Server) DeadSessions() <-chan uint64  { return s.dead }

// NotifyDead reports a closed session. Drops the ID if nobody is draining;
// the game loop also checks IsClosed.
func (s *Server) NotifyDead(id uint64) {
	select {
	case s.dead <- id:
	default:
	}
}

// Shutdown stops accepting. Live sessions are closed by their owner.
func (s *Server) Shutdown() {
	if s.stopped.CompareAndSwap(false, true) {
		_ = s.listener.Close()
	}
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }
