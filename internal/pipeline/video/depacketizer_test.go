package video

import (
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/codec"
)

func annexB(nals ...[]byte) []byte {
	var out []byte
	for _, n := range nals {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}

func TestSplitAnnexBRecoversAllNALs(t *testing.T) {
	a := []byte{0x67, 0xAA, 0xBB}
	b := []byte{0x68, 0xCC}
	c := []byte{0x65, 0x01, 0x02, 0x03}
	stream := annexB(a, b, c)

	nals := SplitAnnexB(stream)
	require.Len(t, nals, 3)
	require.Equal(t, a, nals[0])
	require.Equal(t, b, nals[1])
	require.Equal(t, c, nals[2])
}

func TestH264NonKeyWithoutDescriptionIsDropped(t *testing.T) {
	_ = zerolog.Nop()
	d := NewDepacketizer(codec.FamilyH264)
	nonKey := []byte{0x41, 0x9A, 0x01} // type 1, non-IDR slice
	chunk, err := d.Process(annexB(nonKey), 0, 0)
	require.NoError(t, err)
	require.Nil(t, chunk, "no parameter sets yet: must be dropped")
}

func TestH264KeyFrameAlwaysDecodable(t *testing.T) {
	d := NewDepacketizer(codec.FamilyH264)
	idr := []byte{0x65, 0x01, 0x02, 0x03, 0x04}
	chunk, err := d.Process(annexB(idr), 1000, 16666)
	require.NoError(t, err)
	require.NotNil(t, chunk)
	require.Equal(t, ChunkKey, chunk.Type)

	// length-prefix invariant: 4-byte BE length + payload reproduces the
	// original NAL body.
	gotLen := binary.BigEndian.Uint32(chunk.Data[:4])
	require.EqualValues(t, len(idr), gotLen)
	require.Equal(t, idr, chunk.Data[4:4+gotLen])
}

func TestH264ParameterSetsExcludedFromFrameData(t *testing.T) {
	d := NewDepacketizer(codec.FamilyH264)
	sps := []byte{0x67, 0x42, 0x00, 0x0A, 0x00}
	pps := []byte{0x68, 0xCE, 0x3C, 0x80}
	idr := []byte{0x65, 0xAA, 0xBB}

	chunk, err := d.Process(annexB(sps, pps, idr), 0, 0)
	require.NoError(t, err)
	require.NotNil(t, chunk)

	// Only the IDR should appear in the frame buffer (one length-prefixed
	// record), not the two parameter sets.
	gotLen := binary.BigEndian.Uint32(chunk.Data[:4])
	require.EqualValues(t, len(idr), gotLen)
	require.Len(t, chunk.Data, 4+len(idr))
}

func TestAV1PassesThroughUnmodified(t *testing.T) {
	d := NewDepacketizer(codec.FamilyAV1)
	data := []byte{0x0A, 0x0B, 0x0C}
	chunk, err := d.Process(data, 5, 5)
	require.NoError(t, err)
	require.Equal(t, data, chunk.Data)
}

func TestFrameBufferGrowsGeometrically(t *testing.T) {
	fb := newFrameBuffer()
	initialCap := len(fb.buf)
	big := make([]byte, initialCap*2)
	fb.appendLengthPrefixed(big)
	require.GreaterOrEqual(t, len(fb.buf), initialCap*2)
}
