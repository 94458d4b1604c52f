package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest payload one frame can carry.
const MaxPayload = 65533

var ErrFrameTooLarge = errors.New("net: frame payload too large")

// ReadFrame reads one frame from r and returns its payload.
// Wire format: [2 bytes LE: total length including header][payload].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 || payloadLen > MaxPayload {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes data as one frame in a single Write call.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("write frame (%d bytes): %w", len(data), ErrFrameTooLarge)
	}
	buf := make([]byte, 2, len(data)+2)
	binary.LittleEndian.PutUint16(buf, uint16(len(data)+2))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
