package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAndIsAssociativeAndCommutative(t *testing.T) {
	vals := []Support{Unsupported, Maybe, Supported}
	for _, a := range vals {
		for _, b := range vals {
			require.Equal(t, And(a, b), And(b, a), "commutative")
			for _, c := range vals {
				require.Equal(t, And(And(a, b), c), And(a, And(b, c)), "associative")
			}
		}
	}
}

func TestAndIdentityWithAllSupported(t *testing.T) {
	full := NewMask(Supported)
	partial := Mask{H264: Supported, H265: Maybe}
	got := AndMask(full, partial)
	require.Equal(t, Supported, got[H264])
	require.Equal(t, Maybe, got[H265])
	require.Equal(t, Unsupported, got[AV1Main8])
}

func TestAllFalseMaskRejected(t *testing.T) {
	m := NewMask(Unsupported)
	require.False(t, m.AnySupported())
}

func TestFromBitRoundTrip(t *testing.T) {
	for v, b := range Bit {
		got, ok := FromBit(b)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	_, ok := FromBit(3) // two bits set, not a valid single selection
	require.False(t, ok)
}

func TestDetectProbe(t *testing.T) {
	m := Detect(Probe{H264Decoder: true})
	require.Equal(t, Supported, m[H264])
	require.Equal(t, Unsupported, m[H265])
	require.True(t, m.AnySupported())
	require.NotZero(t, m.Bitmask()&Bit[H264])
}
