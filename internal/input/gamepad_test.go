package input

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/wire"
)

func TestEncodeStateRoundTrip(t *testing.T) {
	frame := EncodeState(ButtonFlagA|ButtonFlagUp, 128, 64, 100, -200, 300, -400)
	c := wire.WrapCursor(frame)
	tag, _ := c.GetUint8()
	require.EqualValues(t, 0, tag)
	flags, _ := c.GetUint32()
	require.EqualValues(t, ButtonFlagA|ButtonFlagUp, flags)
	lt, _ := c.GetUint8()
	rt, _ := c.GetUint8()
	require.EqualValues(t, 128, lt)
	require.EqualValues(t, 64, rt)
	lx, _ := c.GetInt16()
	ly, _ := c.GetInt16()
	rx, _ := c.GetInt16()
	ry, _ := c.GetInt16()
	require.EqualValues(t, 100, lx)
	require.EqualValues(t, -200, ly)
	require.EqualValues(t, 300, rx)
	require.EqualValues(t, -400, ry)
}

func TestRemapButtonsInvertsABAndXY(t *testing.T) {
	flags := ButtonFlagA | ButtonFlagY
	out := RemapButtons(flags, config.ControllerConfig{InvertAB: true, InvertXY: true})
	require.NotZero(t, out&ButtonFlagB, "A must become B")
	require.NotZero(t, out&ButtonFlagX, "Y must become X")
	require.Zero(t, out&ButtonFlagA)
	require.Zero(t, out&ButtonFlagY)
}

func TestScaleAxisInvertsAndClamps(t *testing.T) {
	require.EqualValues(t, -32767, ScaleAxis(1, true))
	require.EqualValues(t, 32767, ScaleAxis(2, false))
	require.EqualValues(t, -32767, ScaleAxis(-2, false))
}

func TestRumbleRoundTripMagnitudes(t *testing.T) {
	// spec.md §8 scenario 5: {u8 0, u8 0, u16 0x8000, u16 0xC000} ->
	// weakMagnitude ~0.5, strongMagnitude ~0.75.
	p := NewPoller(zerolog.Nop())
	p.slots[0] = &Slot{ID: 0, SupportsRumble: true}
	p.SetRumble(0, rumbleDualTag, 0x8000, 0xC000)

	slot := p.slots[0]
	require.InDelta(t, 0.5, float64(decodeRumbleU16(slot.Rumble.LowFrequencyMotor)), 0.01)
	require.InDelta(t, 0.75, float64(decodeRumbleU16(slot.Rumble.HighFrequencyMotor)), 0.01)
}

func TestSetRumbleStoresTriggerTagSeparatelyFromDualTag(t *testing.T) {
	p := NewPoller(zerolog.Nop())
	p.slots[0] = &Slot{ID: 0, SupportsRumble: true, SupportsTriggerRumble: true, dualEffectID: -1}
	p.SetRumble(0, rumbleDualTag, 0x4000, 0x6000)
	p.SetRumble(0, rumbleTriggerTag, 0x1000, 0x2000)

	slot := p.slots[0]
	require.EqualValues(t, 0x4000, slot.Rumble.LowFrequencyMotor)
	require.EqualValues(t, 0x6000, slot.Rumble.HighFrequencyMotor)
	require.EqualValues(t, 0x1000, slot.Rumble.LeftTrigger)
	require.EqualValues(t, 0x2000, slot.Rumble.RightTrigger)
}

func TestReplayRumbleSkipsSlotsWithoutHapticOrController(t *testing.T) {
	// A slot with no Haptic handle and no Controller (e.g. the environment
	// reported no rumble support) must never dereference either, even with
	// a non-zero stored rumble state.
	p := NewPoller(zerolog.Nop())
	p.slots[0] = &Slot{ID: 0, SupportsRumble: true, SupportsTriggerRumble: true, dualEffectID: -1}
	p.SetRumble(0, rumbleDualTag, 0x8000, 0xC000)
	p.SetRumble(0, rumbleTriggerTag, 0x4000, 0x4000)

	require.NotPanics(t, func() { p.ReplayRumble() })
}
