package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrEmptyPacket     = errors.New("packet: empty packet")
	ErrStateNotAllowed = errors.New("packet: opcode not allowed")
)

// SessionState is the protocol phase of a control session.
type SessionState int

const (
	StateHandshake SessionState = iota // awaiting C_OPCODE_HELLO
	StateReady                         // may send commands
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateReady:
		return "ready"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type stateMask uint8

func maskOf(states []SessionState) stateMask {
	var m stateMask
	for _, s := range states {
		m |= 1 << uint(s)
	}
	return m
}

func (m stateMask) allows(s SessionState) bool {
	return s >= 0 && s < 8 && m&(1<<uint(s)) != 0
}

// HandlerFunc handles one decoded packet. The session is passed as any so
// this package does not import the transport.
type HandlerFunc func(sess any, r *Reader)

type route struct {
	fn     HandlerFunc
	states stateMask
}

// Registry routes packets by opcode, gated on the session state.
type Registry struct {
	routes [256]route
	log    *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register installs fn for opcode in the given states, replacing any
// earlier handler.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	reg.routes[opcode] = route{fn: fn, states: maskOf(states)}
}

// Dispatch runs the handler for data[0]. Unknown opcodes are dropped
// without error; a handler panic is returned as an error.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	opcode := data[0]
	rt := reg.routes[opcode]
	if rt.fn == nil {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if !rt.states.allows(state) {
		return fmt.Errorf("%w: 0x%02X in state %s", ErrStateNotAllowed, opcode, state)
	}
	return reg.call(rt.fn, sess, NewReader(data), opcode)
}

func (reg *Registry) call(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("control handler panicked",
				zap.Uint8("opcode", opcode), zap.Any("panic", rec))
			err = fmt.Errorf("handler 0x%02X panicked: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
