// Package video implements the video-side pipes from spec.md §4.4.1-4.4.4:
// Annex-B depacketization, parameter-set extraction, decode-chunk framing,
// and the renderer stages. H.264/H.265 SPS/PPS/VPS parsing leans on
// github.com/bluenviron/mediacommon/v2's codec packages (grounded on the
// bluenviron-mediamtx / bluenviron-gortsplib manifests in the retrieved
// pack); AVCC/HvcC description synthesis is hand-rolled per spec.md §4.4.1
// since it is a handful of literal bytes, not a parsing problem.
package video

import (
	"encoding/binary"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Chunk is one decode unit handed from the depacketizer to the decoder,
// carrying the source timing (spec.md §4.4.1 "microsecond timestamp and
// duration").
type Chunk struct {
	Type            ChunkType
	Data            []byte // length-prefixed NALs (H.264/H.265) or raw OBUs (AV1)
	TimestampMicros int64
	DurationMicros  int64
	// Description is non-nil on every chunk once all parameter sets of the
	// family have been seen and parsed: it carries the AVCC/HvcC
	// description synthesized from the latest ones. VideoDecoder
	// reconfigures only when it differs from the previous description.
	Description []byte
}

type ChunkType int

const (
	ChunkDelta ChunkType = iota
	ChunkKey
)

// decodeState is the per-codec pending-parameter-set state from spec.md §3
// "Video decode state".
type decodeState struct {
	family       codec.Family
	sps, pps, vps []byte
	hasDescription bool
}

// Depacketizer splits Annex-B byte streams into length-prefixed NAL
// records, extracting parameter sets and synthesizing AVCC/HvcC
// descriptions (spec.md §4.4.1). One Depacketizer is bound to a single
// codec family for the lifetime of a pipeline (rebuilding the pipeline is
// how a codec change is handled, per spec.md §4.4).
type Depacketizer struct {
	family codec.Family
	state  decodeState
	mask   codec.Mask
}

// NewDepacketizer builds a depacketizer for the given codec family. mask
// is the codec support this pipe contributes to the pointwise AND (spec.md
// §3); H.264/H.265 depacketizers only carry their own family's variants,
// AV1 passes through untouched so it claims the full AV1 subset.
func NewDepacketizer(family codec.Family) *Depacketizer {
	d := &Depacketizer{family: family, state: decodeState{family: family}}
	d.mask = codec.NewMask(codec.Unsupported)
	switch family {
	case codec.FamilyH264:
		d.mask[codec.H264] = codec.Supported
		d.mask[codec.H264High8_444] = codec.Supported
	case codec.FamilyH265:
		d.mask[codec.H265] = codec.Supported
		d.mask[codec.H265Main10] = codec.Supported
		d.mask[codec.H265REXT8_444] = codec.Supported
		d.mask[codec.H265REXT10_444] = codec.Supported
	case codec.FamilyAV1:
		d.mask[codec.AV1Main8] = codec.Supported
		d.mask[codec.AV1Main10] = codec.Supported
		d.mask[codec.AV1High8_444] = codec.Supported
		d.mask[codec.AV1High10_444] = codec.Supported
	}
	return d
}

func (d *Depacketizer) Name() string                 { return "Depacketize" }
func (d *Depacketizer) InputType() pipeline.IOType    { return pipeline.TypeDataChunk }
func (d *Depacketizer) OutputType() pipeline.IOType   { return pipeline.TypeDataChunk }
func (d *Depacketizer) Environment() pipeline.Environment { return pipeline.Main }
func (d *Depacketizer) CodecMask() codec.Mask         { return d.mask }

// SplitAnnexB scans an Annex-B byte stream for 3- or 4-byte start codes
// and returns the NAL units between them, in order.
func SplitAnnexB(buf []byte) [][]byte {
	starts := findStartCodes(buf)
	if len(starts) == 0 {
		return nil
	}
	var nals [][]byte
	for i, s := range starts {
		end := len(buf)
		if i+1 < len(starts) {
			end = starts[i+1].offset
		}
		nal := buf[s.offset+s.length : end]
		if len(nal) > 0 {
			nals = append(nals, nal)
		}
	}
	return nals
}

type startCode struct {
	offset int
	length int
}

func findStartCodes(buf []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			out = append(out, startCode{offset: i, length: 3})
			i += 2
			continue
		}
		if i+3 < len(buf) && buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 0 && buf[i+3] == 1 {
			out = append(out, startCode{offset: i, length: 4})
			i += 3
		}
	}
	return out
}

// frameBuffer grows geometrically as spec.md §4.4.1 requires, doubling
// whenever the next write would overflow.
type frameBuffer struct {
	buf []byte
	n   int
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{buf: make([]byte, 4096)}
}

func (f *frameBuffer) appendLengthPrefixed(nal []byte) {
	need := f.n + 4 + len(nal)
	for need > len(f.buf) {
		grown := make([]byte, len(f.buf)*2)
		copy(grown, f.buf[:f.n])
		f.buf = grown
	}
	binary.BigEndian.PutUint32(f.buf[f.n:], uint32(len(nal)))
	f.n += 4
	copy(f.buf[f.n:], nal)
	f.n += len(nal)
}

func (f *frameBuffer) bytes() []byte { return f.buf[:f.n] }

// Process converts one Annex-B input unit into a Chunk, or returns
// (nil, nil) when the unit contained only parameter sets and produced no
// decodable frame data yet (e.g. a standalone SPS/PPS NAL with no slice
// data, which still updates description state as a side effect), and also
// for a non-key unit that arrives before any description exists.
func (d *Depacketizer) Process(data []byte, timestampMicros, durationMicros int64) (*Chunk, error) {
	switch d.family {
	case codec.FamilyAV1:
		return &Chunk{Type: ChunkKey, Data: data, TimestampMicros: timestampMicros, DurationMicros: durationMicros}, nil
	case codec.FamilyH264:
		return d.processH264(data, timestampMicros, durationMicros)
	case codec.FamilyH265:
		return d.processH265(data, timestampMicros, durationMicros)
	default:
		return nil, fmt.Errorf("depacketizer: unknown codec family")
	}
}

func (d *Depacketizer) processH264(data []byte, ts, dur int64) (*Chunk, error) {
	nals := SplitAnnexB(data)
	fb := newFrameBuffer()
	isKey := false
	var desc []byte

	for _, nal := range nals {
		if len(nal) == 0 {
			continue
		}
		nalType := nal[0] & 0x1F
		switch nalType {
		case 7: // SPS
			d.state.sps = append([]byte{}, nal...)
		case 8: // PPS
			d.state.pps = append([]byte{}, nal...)
		case 5: // IDR slice
			isKey = true
			fb.appendLengthPrefixed(nal)
		default:
			fb.appendLengthPrefixed(nal)
		}
	}

	if len(d.state.sps) > 0 && len(d.state.pps) > 0 {
		var sps h264.SPS
		if err := sps.Unmarshal(d.state.sps); err == nil {
			desc = synthesizeAVCC(d.state.sps, d.state.pps)
			d.state.hasDescription = true
		}
	}

	if fb.n == 0 {
		return nil, nil
	}
	if !isKey && !d.state.hasDescription {
		return nil, nil // spec.md §4.4.1: decode only if key or hasDescription
	}

	ct := ChunkDelta
	if isKey {
		ct = ChunkKey
	}
	return &Chunk{Type: ct, Data: fb.bytes(), TimestampMicros: ts, DurationMicros: dur, Description: desc}, nil
}

// synthesizeAVCC builds the AVCC description from spec.md §4.4.1:
// configurationVersion=1, profile/compat/level from SPS bytes 1..3,
// lengthSizeMinusOne=0xFF, one SPS, one PPS.
func synthesizeAVCC(sps, pps []byte) []byte {
	out := make([]byte, 0, 11+len(sps)+len(pps))
	out = append(out, 1)                 // configurationVersion
	out = append(out, sps[1], sps[2], sps[3]) // profile/compat/level (NAL header byte excluded)
	out = append(out, 0xFF)               // lengthSizeMinusOne=3 | reserved bits all set
	out = append(out, 0xE1)               // reserved bits | numSPS=1
	out = append(out, byte(len(sps)>>8), byte(len(sps)))
	out = append(out, sps...)
	out = append(out, 1) // numPPS
	out = append(out, byte(len(pps)>>8), byte(len(pps)))
	out = append(out, pps...)
	return out
}

func (d *Depacketizer) processH265(data []byte, ts, dur int64) (*Chunk, error) {
	nals := SplitAnnexB(data)
	fb := newFrameBuffer()
	isKey := false
	var desc []byte

	for _, nal := range nals {
		if len(nal) < 2 {
			continue
		}
		nalType := (nal[0] >> 1) & 0x3F
		switch nalType {
		case 32: // VPS
			d.state.vps = append([]byte{}, nal...)
		case 33: // SPS
			d.state.sps = append([]byte{}, nal...)
		case 34: // PPS
			d.state.pps = append([]byte{}, nal...)
		case 19, 20, 21: // IDR_W_RADL, IDR_N_LP, CRA_NUT
			isKey = true
			fb.appendLengthPrefixed(nal)
		default:
			fb.appendLengthPrefixed(nal)
		}
	}

	if len(d.state.vps) > 0 && len(d.state.sps) > 0 && len(d.state.pps) > 0 {
		var vps h265.VPS
		if err := vps.Unmarshal(d.state.vps); err == nil {
			desc = synthesizeHvcC(d.state.vps, d.state.sps, d.state.pps)
			d.state.hasDescription = true
		}
	}

	if fb.n == 0 {
		return nil, nil
	}
	if !isKey && !d.state.hasDescription {
		return nil, nil
	}
	ct := ChunkDelta
	if isKey {
		ct = ChunkKey
	}
	return &Chunk{Type: ct, Data: fb.bytes(), TimestampMicros: ts, DurationMicros: dur, Description: desc}, nil
}

// synthesizeHvcC builds a minimal HvcC with three parameter-set arrays
// (VPS, SPS, PPS), per spec.md §4.4.1.
func synthesizeHvcC(vps, sps, pps []byte) []byte {
	arr := func(nalType byte, nal []byte) []byte {
		a := []byte{0x80 | nalType, 0, 1}
		a = append(a, byte(len(nal)>>8), byte(len(nal)))
		a = append(a, nal...)
		return a
	}
	out := []byte{1} // configurationVersion
	out = append(out, make([]byte, 20)...) // profile/level/compat fields, left zeroed (not decoder-critical here)
	out = append(out, 3)                   // numOfArrays
	out = append(out, arr(32, vps)...)
	out = append(out, arr(33, sps)...)
	out = append(out, arr(34, pps)...)
	return out
}

// HasDescription reports whether a parameter-set description has been
// synthesized yet (spec.md §3 decode-state invariant).
func (d *Depacketizer) HasDescription() bool { return d.state.hasDescription }
