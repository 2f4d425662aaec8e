package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32SliceToBytesRoundTripsLittleEndian(t *testing.T) {
	pcm := []float32{0, 1, -1, 0.5, -0.5}
	out := float32SliceToBytes(pcm)
	require.Len(t, out, len(pcm)*4)

	for i, want := range pcm {
		bits := binary.LittleEndian.Uint32(out[i*4 : i*4+4])
		require.Equal(t, want, math.Float32frombits(bits))
	}
}

func TestPassthroughIsIdentityOnDataChunkType(t *testing.T) {
	var p Passthrough
	require.Equal(t, p.InputType(), p.OutputType())
	require.True(t, p.CodecMask().AnySupported())
}
