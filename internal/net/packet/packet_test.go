package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriterReaderFields(t *testing.T) {
	w := NewWriterWithOpcode(C_OPCODE_SPAWN)
	w.WriteS("Café")
	w.WriteC(7)
	w.WriteH(513)
	w.WriteD(-2)
	w.WriteQ(1 << 40)
	w.WriteF(-1.25)

	r := NewReader(w.Bytes())
	assert.Equal(t, C_OPCODE_SPAWN, r.Opcode())
	assert.Equal(t, "Café", r.ReadS(), "normalised to NFC")
	assert.Equal(t, byte(7), r.ReadC())
	assert.Equal(t, uint16(513), r.ReadH())
	assert.Equal(t, int32(-2), r.ReadD())
	assert.Equal(t, uint64(1<<40), r.ReadQ())
	assert.Equal(t, -1.25, r.ReadF())
	assert.Equal(t, 0, r.Remaining())
	assert.False(t, r.Short())

	assert.Equal(t, uint64(0), r.ReadQ())
	assert.True(t, r.Short())
}

func TestReadSUnterminated(t *testing.T) {
	r := NewReader([]byte{C_OPCODE_HELLO, 'a', 'b'})
	assert.Equal(t, "ab", r.ReadS())
	assert.True(t, r.Short())
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var got []byte
	reg.Register(C_OPCODE_TURN, []SessionState{StateReady}, func(sess any, r *Reader) {
		got = append(got, r.ReadC())
	})
	reg.Register(C_OPCODE_QUIT, []SessionState{StateReady}, func(any, *Reader) {
		panic("boom")
	})

	require.NoError(t, reg.Dispatch(nil, StateReady, []byte{C_OPCODE_TURN, 9}))
	assert.Equal(t, []byte{9}, got)

	err := reg.Dispatch(nil, StateHandshake, []byte{C_OPCODE_TURN, 9})
	assert.True(t, errors.Is(err, ErrStateNotAllowed))
	assert.ErrorIs(t, reg.Dispatch(nil, StateReady, nil), ErrEmptyPacket)
	assert.NoError(t, reg.Dispatch(nil, StateReady, []byte{0x7f}), "unknown opcodes are ignored")
	assert.Error(t, reg.Dispatch(nil, StateReady, []byte{C_OPCODE_QUIT}), "panic becomes an error")
}
