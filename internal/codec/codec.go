// Package codec holds the video codec variant table, the tri-state support
// lattice used to intersect pipeline capability masks, and the wire bitmask
// the server negotiates a codec against (spec.md §3, §6).
package codec

// Variant enumerates the video codec/profile combinations the server can
// negotiate, in bitmask order.
type Variant int

const (
	H264 Variant = iota
	H264High8_444
	H265
	H265Main10
	H265REXT8_444
	H265REXT10_444
	AV1Main8
	AV1Main10
	AV1High8_444
	AV1High10_444

	numVariants
)

// Bit is the server's single-bit wire value for each variant (spec.md §6).
var Bit = map[Variant]uint32{
	H264:          1,
	H264High8_444: 2,
	H265:          4,
	H265Main10:    8,
	H265REXT8_444: 16,
	H265REXT10_444: 32,
	AV1Main8:      64,
	AV1Main10:     128,
	AV1High8_444:  256,
	AV1High10_444: 512,
}

// Family reports the base codec family a variant belongs to, used by the
// depacketizer to select an Annex-B/AV1 parsing strategy.
type Family int

const (
	FamilyH264 Family = iota
	FamilyH265
	FamilyAV1
)

var familyOf = map[Variant]Family{
	H264:           FamilyH264,
	H264High8_444:  FamilyH264,
	H265:           FamilyH265,
	H265Main10:     FamilyH265,
	H265REXT8_444:  FamilyH265,
	H265REXT10_444: FamilyH265,
	AV1Main8:       FamilyAV1,
	AV1Main10:      FamilyAV1,
	AV1High8_444:   FamilyAV1,
	AV1High10_444:  FamilyAV1,
}

func (v Variant) Family() Family { return familyOf[v] }

// Support is a tri-state: a pipe may report it unconditionally supports a
// variant, unconditionally does not, or "maybe" (depends on what's
// negotiated later in the pipeline, e.g. an external hardware decoder).
type Support int

const (
	Unsupported Support = iota
	Maybe
	Supported
)

// And implements the pointwise combination rule from spec.md §3:
// true∧true=true, true∧maybe or maybe∧maybe=maybe, else false. It is
// associative and commutative, and an all-Supported mask is the identity.
func And(a, b Support) Support {
	if a == Unsupported || b == Unsupported {
		return Unsupported
	}
	if a == Supported && b == Supported {
		return Supported
	}
	return Maybe
}

// Mask maps every Variant to a Support value. A nil/zero Mask entry reads
// as Unsupported.
type Mask map[Variant]Support

// NewMask builds a Mask with every variant set to the given default.
func NewMask(def Support) Mask {
	m := make(Mask, int(numVariants))
	for v := Variant(0); v < numVariants; v++ {
		m[v] = def
	}
	return m
}

// AndMask combines two masks pointwise, defaulting missing entries to
// Unsupported.
func AndMask(a, b Mask) Mask {
	out := make(Mask, int(numVariants))
	for v := Variant(0); v < numVariants; v++ {
		out[v] = And(a[v], b[v])
	}
	return out
}

// AnySupported reports whether at least one variant is Supported or Maybe,
// the condition a candidate pipeline must satisfy to be viable.
func (m Mask) AnySupported() bool {
	for _, s := range m {
		if s != Unsupported {
			return true
		}
	}
	return false
}

// Bitmask renders the client's probed support as the wire bitmask sent in
// Init.videoSupportedFormatsBitmask, counting both Supported and Maybe as
// advertised (the server makes the final call).
func (m Mask) Bitmask() uint32 {
	var out uint32
	for v, s := range m {
		if s != Unsupported {
			out |= Bit[v]
		}
	}
	return out
}

// FromBit resolves the server's single selected-codec bit back to a
// Variant. ok is false for an unrecognized or multi-bit value.
func FromBit(bit uint32) (Variant, bool) {
	for v, b := range Bit {
		if b == bit {
			return v, true
		}
	}
	return 0, false
}
