package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPointAndDragTapEmitsAbsoluteThenButtonDownThenUp(t *testing.T) {
	// spec.md §8 scenario 3: touchstart(100,100), touchend(102,101) after
	// 120ms, touchMode="pointAndDrag", rect=(0,0,500,500).
	s := NewSession(TouchModePointAndDrag, Rect{Left: 0, Top: 0, Width: 500, Height: 500}, false)

	startFrames := s.Start(1, 100, 100, 1, 1, 1, 0)
	require.Empty(t, startFrames, "a bare start with no movement emits nothing yet")

	track := s.tracks[1]
	track.StartTime = time.Now().Add(-120 * time.Millisecond)

	endFrames := s.End(1)
	require.Len(t, endFrames, 3)
	require.Equal(t, EncodeAbsolute(819, 819, referenceSpan, referenceSpan), endFrames[0])
	require.Equal(t, EncodeButton(true, ButtonLeft), endFrames[1])
	require.Equal(t, EncodeButton(false, ButtonLeft), endFrames[2])
}

func TestThreeFingerSwipeShowsKeyboard(t *testing.T) {
	s := NewSession(TouchModeMouseRelative, Rect{Left: 0, Top: 0, Width: 500, Height: 500}, false)
	shown := false
	s.OnShowKeyboard = func() { shown = true }

	s.Start(1, 100, 100, 1, 1, 1, 0)
	s.Start(2, 150, 100, 1, 1, 1, 0)
	s.Start(3, 200, 100, 1, 1, 1, 0)

	frames := s.Move(1, 100, 260, 1, 1, 1, 0)
	require.Empty(t, frames, "gesture mode emits no mouse messages")
	require.True(t, shown)
}

func TestTwoFingerScrollInvertsHorizontal(t *testing.T) {
	s := NewSession(TouchModeMouseRelative, Rect{Left: 0, Top: 0, Width: 500, Height: 500}, false)
	var gotDX, gotDY float64
	s.OnScroll = func(dx, dy float64) { gotDX, gotDY = dx, dy }

	s.Start(1, 100, 100, 1, 1, 1, 0)
	s.Start(2, 150, 100, 1, 1, 1, 0)
	s.Move(1, 110, 105, 1, 1, 1, 0)

	require.Equal(t, -10.0, gotDX)
	require.Equal(t, 5.0, gotDY)
}

func TestTouchOutsideRectIsDropped(t *testing.T) {
	s := NewSession(TouchModeRaw, Rect{Left: 0, Top: 0, Width: 100, Height: 100}, true)
	require.Nil(t, s.Start(1, 500, 500, 1, 1, 1, 0))
}

func TestRawModeFallsBackWithoutTouchCapability(t *testing.T) {
	s := NewSession(TouchModeRaw, Rect{Left: 0, Top: 0, Width: 100, Height: 100}, false)
	require.Equal(t, TouchModeMouseRelative, s.mode)
}
