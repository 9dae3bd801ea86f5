package classfile

import "encoding/binary"

// cursor is a shrinking view over the input. buf holds the bytes not yet
// consumed and off is the absolute position of buf[0].
type cursor struct {
	buf []byte
	off int
}

func newCursor(b []byte) *cursor {
	return &cursor{buf: b}
}

func (c *cursor) remaining() int { return len(c.buf) }

func (c *cursor) truncated(field string) error {
	return &DecodeError{Field: field, Offset: c.off, Err: ErrTruncatedInput}
}

func (c *cursor) advance(n int) {
	c.buf = c.buf[n:]
	c.off += n
}

func (c *cursor) u8(field string) (uint8, error) {
	if len(c.buf) < 1 {
		return 0, c.truncated(field)
	}
	v := c.buf[0]
	c.advance(1)
	return v, nil
}

func (c *cursor) u16(field string) (uint16, error) {
	if len(c.buf) < 2 {
		return 0, c.truncated(field)
	}
	v := binary.BigEndian.Uint16(c.buf)
	c.advance(2)
	return v, nil
}

func (c *cursor) u32(field string) (uint32, error) {
	if len(c.buf) < 4 {
		return 0, c.truncated(field)
	}
	v := binary.BigEndian.Uint32(c.buf)
	c.advance(4)
	return v, nil
}

// bytes copies exactly n bytes out of the view so the decoded tree never
// aliases the caller's buffer.
func (c *cursor) bytes(n int, field string) ([]byte, error) {
	if n < 0 || len(c.buf) < n {
		return nil, c.truncated(field)
	}
	out := make([]byte, n)
	copy(out, c.buf[:n])
	c.advance(n)
	return out, nil
}
