package packet

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Reader reads control-protocol fields from one frame payload. Byte 0 is
// always the opcode. Reads past the end yield zero values; check Short
// after decoding a packet.
type Reader struct {
	data  []byte
	off   int
	short bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

func (r *Reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// ReadQ reads 8 bytes as little-endian uint64.
func (r *Reader) ReadQ() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadF reads an IEEE-754 float64.
func (r *Reader) ReadF() float64 {
	return math.Float64frombits(r.ReadQ())
}

// ReadS reads a null-terminated UTF-8 string, normalised to NFC.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return norm.NFC.String(string(raw))
		}
		r.off++
	}
	r.short = true
	return norm.NFC.String(string(r.data[start:r.off]))
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Short reports whether any read ran past the end of the payload.
func (r *Reader) Short() bool { return r.short }
