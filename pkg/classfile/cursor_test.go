package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorReadsBigEndian(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09})

	v8, err := c.u8("a")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v8)

	v16, err := c.u16("b")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), v16)

	v32, err := c.u32("c")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04050607), v32)

	assert.Equal(t, 7, c.off)
	assert.Equal(t, 2, c.remaining())

	b, err := c.bytes(2, "d")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x09}, b)
	assert.Zero(t, c.remaining())
}

func TestCursorTruncation(t *testing.T) {
	tests := []struct {
		name string
		read func(c *cursor) error
	}{
		{"u8", func(c *cursor) error { _, err := c.u8("f"); return err }},
		{"u16", func(c *cursor) error { _, err := c.u16("f"); return err }},
		{"u32", func(c *cursor) error { _, err := c.u32("f"); return err }},
		{"bytes", func(c *cursor) error { _, err := c.bytes(5, "f"); return err }},
		{"negative length", func(c *cursor) error { _, err := c.bytes(-1, "f"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One byte is always too few except for u8, which gets none.
			input := []byte{0xAA}
			if tt.name == "u8" {
				input = nil
			}
			c := newCursor(input)
			err := tt.read(c)

			require.ErrorIs(t, err, ErrTruncatedInput)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "f", de.Field)
			assert.Equal(t, 0, de.Offset)
			// A failed read does not move the cursor.
			assert.Equal(t, len(input), c.remaining())
		})
	}
}

func TestCursorViewsAreIndependent(t *testing.T) {
	input := []byte{0x00, 0x10, 0x00, 0x20}
	a, b := newCursor(input), newCursor(input)

	va, _ := a.u16("x")
	va2, _ := a.u16("x")
	vb, _ := b.u16("x")

	assert.Equal(t, uint16(0x10), va)
	assert.Equal(t, uint16(0x20), va2)
	assert.Equal(t, uint16(0x10), vb)
}
