// Package wire implements the endian-correct cursor over a byte region that
// every binary input and controller message in this client is built and
// parsed with; signaling messages are JSON.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cursor is a fixed-size byte buffer with an internal read/write position,
// mirroring the put/get-with-flip idiom the browser source used over a
// DataView. All multi-byte fields are big-endian per spec.md §6.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor allocates a Cursor over a fresh buffer of the given capacity,
// ready for writing (puts) starting at offset 0.
func NewCursor(capacity int) *Cursor {
	return &Cursor{buf: make([]byte, capacity)}
}

// WrapCursor builds a Cursor over an existing byte slice, ready for reading
// (gets) starting at offset 0. The slice is used directly, not copied.
func WrapCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Flip limits the buffer to the bytes before the current position and
// resets the position to 0, so a buffer just written with Put* calls can be
// read back, or bytes already read can be re-read from the start.
func (c *Cursor) Flip() *Cursor {
	c.buf = c.buf[:c.pos]
	c.pos = 0
	return c
}

// Bytes returns the buffer up to its limit: after Flip, exactly the bytes
// written before the flip; for a wrapped slice, the whole slice.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) need(n int) error {
	if c.Remaining() < n {
		return fmt.Errorf("wire: short buffer, need %d bytes, have %d", n, c.Remaining())
	}
	return nil
}

func (c *Cursor) PutUint8(v uint8) *Cursor {
	c.buf[c.pos] = v
	c.pos++
	return c
}

func (c *Cursor) PutInt8(v int8) *Cursor { return c.PutUint8(uint8(v)) }

func (c *Cursor) PutUint16(v uint16) *Cursor {
	binary.BigEndian.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
	return c
}

func (c *Cursor) PutInt16(v int16) *Cursor { return c.PutUint16(uint16(v)) }

func (c *Cursor) PutUint32(v uint32) *Cursor {
	binary.BigEndian.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
	return c
}

func (c *Cursor) PutInt32(v int32) *Cursor { return c.PutUint32(uint32(v)) }

func (c *Cursor) PutFloat32(v float32) *Cursor {
	return c.PutUint32(math.Float32bits(v))
}

func (c *Cursor) PutBytes(b []byte) *Cursor {
	copy(c.buf[c.pos:], b)
	c.pos += len(b)
	return c
}

func (c *Cursor) GetUint8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) GetInt8() (int8, error) {
	v, err := c.GetUint8()
	return int8(v), err
}

func (c *Cursor) GetUint16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) GetInt16() (int16, error) {
	v, err := c.GetUint16()
	return int16(v), err
}

func (c *Cursor) GetUint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) GetInt32() (int32, error) {
	v, err := c.GetUint32()
	return int32(v), err
}

func (c *Cursor) GetFloat32() (float32, error) {
	v, err := c.GetUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *Cursor) GetBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}
