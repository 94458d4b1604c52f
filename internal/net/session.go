package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/altplanet/engine/internal/net/packet"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// Session is one remote-control connection. The reader and writer run in
// their own goroutines; everything else is called from the game loop.
type Session struct {
	ID         uint64
	IP         string
	ClientName string

	InQueue  chan []byte // reader -> game loop
	OutQueue chan []byte // game loop -> writer, nil entry = close after flush

	conn    net.Conn
	state   atomic.Int32 // packet.SessionState
	pending [][]byte     // Send buffer, game loop only
	limiter rateLimiter  // reader goroutine only

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(id uint64)

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize, pktPerSec int, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		IP:       conn.RemoteAddr().String(),
		InQueue:  make(chan []byte, inSize),
		OutQueue: make(chan []byte, outSize),
		conn:     conn,
		limiter:  rateLimiter{limit: pktPerSec},
		done:     make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.SetState(packet.StateHandshake)
	return s
}

func (s *Session) State() packet.SessionState      { return packet.SessionState(s.state.Load()) }
func (s *Session) SetState(st packet.SessionState) { s.state.Store(int32(st)) }
func (s *Session) IsClosed() bool                  { return s.closed.Load() }

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers one packet until the next FlushOutput.
func (s *Session) Send(data []byte) {
	if s.IsClosed() {
		return
	}
	s.pending = append(s.pending, data)
}

// FlushOutput hands buffered packets to the writer. A client that cannot
// keep up is disconnected instead of stalling the tick.
func (s *Session) FlushOutput() {
	defer func() { s.pending = s.pending[:0] }()
	for _, data := range s.pending {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow client", zap.Int("queued", len(s.OutQueue)))
			s.Close()
			return
		}
	}
}

// CloseAfterFlush sends whatever is buffered, then closes.
func (s *Session) CloseAfterFlush() {
	s.SetState(packet.StateDisconnecting)
	s.FlushOutput()
	select {
	case s.OutQueue <- nil:
	default:
		s.Close()
	}
}

// Close is idempotent and safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.done)
		_ = s.conn.Close()
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	})
}

func (s *Session) readLoop() {
	defer s.Close()
	for {
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.IsClosed() {
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		if !s.limiter.allow(time.Now().Unix()) {
			s.log.Warn("packet rate exceeded, disconnecting", zap.Int("limit", s.limiter.limit))
			return
		}
		// Block rather than drop: a lost SIGNAL release would leave a
		// thrust key held forever.
		select {
		case s.InQueue <- payload:
		case <-s.done:
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer s.Close()
	for {
		select {
		case data := <-s.OutQueue:
			if data == nil {
				return
			}
			s.log.Debug("TX", zap.Uint8("opcode", data[0]), zap.Int("len", len(data)))
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := WriteFrame(s.conn, data); err != nil {
				if !s.IsClosed() {
					s.log.Debug("write failed", zap.Error(err))
				}
				return
			}
		case <-s.done:
			return
		}
	}
}
