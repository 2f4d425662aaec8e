package input

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/wire"
)

func TestEncodeKeyEventRoundTrip(t *testing.T) {
	code, ok := KeyCodeForPhysical("KeyW")
	require.True(t, ok)

	frame := EncodeKeyEvent(true, ModShift|ModCtrl, code)
	c := wire.WrapCursor(frame)
	tag, err := c.GetUint8()
	require.NoError(t, err)
	require.EqualValues(t, 0, tag)

	isDown, err := c.GetUint8()
	require.NoError(t, err)
	require.EqualValues(t, 1, isDown)

	mods, err := c.GetUint8()
	require.NoError(t, err)
	require.EqualValues(t, ModShift|ModCtrl, mods)

	gotCode, err := c.GetUint16()
	require.NoError(t, err)
	require.EqualValues(t, code, gotCode)
}

func TestUnmappedPhysicalCodeDropped(t *testing.T) {
	_, ok := KeyCodeForPhysical("NotARealKey")
	require.False(t, ok)
}

func TestKeyCodeForScancodeMatchesPhysicalMapping(t *testing.T) {
	want, ok := KeyCodeForPhysical("KeyW")
	require.True(t, ok)

	got, ok := KeyCodeForScancode(sdl.SCANCODE_W)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestKeyCodeForScancodeUnmapped(t *testing.T) {
	_, ok := KeyCodeForScancode(sdl.SCANCODE_NONUSBACKSLASH)
	require.False(t, ok)
}

func TestEncodeTextRoundTrip(t *testing.T) {
	frame := EncodeText("hi")
	c := wire.WrapCursor(frame)
	tag, _ := c.GetUint8()
	require.EqualValues(t, 1, tag)
	length, _ := c.GetUint8()
	require.EqualValues(t, 2, length)
	body, err := c.GetBytes(int(length))
	require.NoError(t, err)
	require.Equal(t, "hi", string(body))
}
