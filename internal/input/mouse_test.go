package input

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/wire"
)

func TestEncodeRelativeMoveRoundTrip(t *testing.T) {
	frame := EncodeRelativeMove(-5, 10)
	c := wire.WrapCursor(frame)
	tag, _ := c.GetUint8()
	require.EqualValues(t, 0, tag)
	dx, _ := c.GetInt16()
	dy, _ := c.GetInt16()
	require.EqualValues(t, -5, dx)
	require.EqualValues(t, 10, dy)
}

func TestApplyScrollModeReversedNegatesAgain(t *testing.T) {
	require.EqualValues(t, -7, ApplyScrollMode(7, config.ScrollModeReversed))
	require.EqualValues(t, 7, ApplyScrollMode(7, config.ScrollModeStandard))
}

func TestTrackerRelativeModeEmitsDeltas(t *testing.T) {
	tr := NewTracker(ModeRelative, 4096, 4096)
	frames := tr.Move(3, -3, 100, 100)
	require.Len(t, frames, 1)
	c := wire.WrapCursor(frames[0])
	tag, _ := c.GetUint8()
	require.EqualValues(t, mouseTagRelative, tag)
}

func TestTrackerPointAndDragSuppressesMoveUntilButtonHeld(t *testing.T) {
	tr := NewTracker(ModePointAndDrag, 4096, 4096)
	require.Nil(t, tr.Move(3, 3, 100, 100))

	downFrames := tr.ButtonChange(true, ButtonLeft, 100, 100)
	require.Len(t, downFrames, 2, "button-down must emit absolute anchor then button message")

	moveFrames := tr.Move(3, 3, 103, 103)
	require.Len(t, moveFrames, 1, "movement while held emits relative deltas")
}
