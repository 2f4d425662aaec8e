package codec

// Probe detects which video codec profiles this process can actually
// decode, standing in for the browser's WebCodecs VideoDecoder.isConfigSupported
// probe (spec.md §2, "Codec capability probe").
//
// A variant is Supported only if a decoder backend for its family is
// linked in and reports it handles the exact profile; it is Maybe when the
// backend can plausibly decode the bitstream but cannot confirm the
// specific profile ahead of time (matches the "maybe" used by pipes whose
// real answer depends on what the server ends up sending).
type Probe struct {
	H264Decoder bool // github.com/y9o/go-openh264 backend linked and initialized
	H265Decoder bool
	AV1Decoder  bool
}

// Detect runs the probe over the given backend availability flags. The
// client (internal/app) sets H264Decoder unconditionally, since
// go-openh264 is the only decoder backend linked in; H265Decoder and
// AV1Decoder are never set.
func Detect(p Probe) Mask {
	m := NewMask(Unsupported)

	if p.H264Decoder {
		m[H264] = Supported
		m[H264High8_444] = Maybe // high-bit-depth 4:4:4 depends on stream profile
	}
	if p.H265Decoder {
		m[H265] = Supported
		m[H265Main10] = Maybe
		m[H265REXT8_444] = Maybe
		m[H265REXT10_444] = Maybe
	}
	if p.AV1Decoder {
		m[AV1Main8] = Supported
		m[AV1Main10] = Maybe
		m[AV1High8_444] = Maybe
		m[AV1High10_444] = Maybe
	}
	return m
}
