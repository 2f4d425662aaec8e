package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLetterboxWiderFrameGetsTopBottomBars(t *testing.T) {
	// 16:9 frame into a square client area -> bars top/bottom.
	dst := letterbox(1600, 900, 800, 800)
	require.Equal(t, int32(800), dst.W)
	require.Less(t, dst.H, int32(800))
	require.Greater(t, dst.Y, int32(0))
}

func TestLetterboxTallerFrameGetsSideBars(t *testing.T) {
	// 9:16 frame into a 16:9 client area -> bars left/right.
	dst := letterbox(900, 1600, 1600, 900)
	require.Equal(t, int32(900), dst.H)
	require.Less(t, dst.W, int32(1600))
	require.Greater(t, dst.X, int32(0))
}

func TestLetterboxMatchingAspectFillsExactly(t *testing.T) {
	dst := letterbox(1280, 720, 1280, 720)
	require.Equal(t, int32(1280), dst.W)
	require.Equal(t, int32(720), dst.H)
	require.Equal(t, int32(0), dst.X)
	require.Equal(t, int32(0), dst.Y)
}
