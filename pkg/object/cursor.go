package object

import (
	"encoding/binary"
	"fmt"
)

// Cursor is a forward-only reading view over a byte buffer. Every parser in
// this package consumes its input through a Cursor so that truncated or
// corrupt files fail with ErrOutOfBounds instead of panicking or silently
// reading short.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a cursor positioned at the start of data. The cursor
// never copies or mutates data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the number of bytes consumed so far.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Uint8 consumes one byte.
func (c *Cursor) Uint8() (byte, error) {
	if c.Remaining() < 1 {
		return 0, fmt.Errorf("need 1 byte at offset %d, have 0: %w", c.pos, ErrOutOfBounds)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// Uint32BE consumes a big-endian 32-bit integer.
func (c *Cursor) Uint32BE() (uint32, error) {
	buf, err := c.Slice(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// Uint64BE consumes a big-endian 64-bit integer.
func (c *Cursor) Uint64BE() (uint64, error) {
	buf, err := c.Slice(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Varint consumes a continuation-bit varint: 7 value bits per byte, least
// significant group first, top bit set on every byte except the last.
func (c *Cursor) Varint() (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := c.Uint8()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("varint at offset %d overflows 64 bits: %w", c.pos, ErrMalformedHeader)
		}
	}
}

// Slice consumes the next n bytes and returns them as a subslice of the
// underlying buffer, without copying.
func (c *Cursor) Slice(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, c.pos, c.Remaining(), ErrOutOfBounds)
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// Rest consumes and returns every unread byte.
func (c *Cursor) Rest() []byte {
	out := c.data[c.pos:]
	c.pos = len(c.data)
	return out
}
