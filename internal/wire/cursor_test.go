package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := NewCursor(64)
	c.PutUint8(9).PutInt16(-7).PutUint32(123456).PutFloat32(3.5).PutBytes([]byte("hi"))
	c.Flip()

	u8, err := c.GetUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(9), u8)

	i16, err := c.GetInt16()
	require.NoError(t, err)
	require.Equal(t, int16(-7), i16)

	u32, err := c.GetUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(123456), u32)

	f32, err := c.GetFloat32()
	require.NoError(t, err)
	require.InDelta(t, 3.5, f32, 0.0001)

	b, err := c.GetBytes(2)
	require.NoError(t, err)
	require.Equal(t, "hi", string(b))
}

func TestCursorShortReadError(t *testing.T) {
	c := WrapCursor([]byte{1})
	_, err := c.GetUint16()
	require.Error(t, err)
}
