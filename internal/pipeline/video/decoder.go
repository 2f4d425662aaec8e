package video

import (
	"bytes"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"github.com/y9o/go-openh264"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Frame is a decoded, displayable video frame (spec.md §4.4.2/4.4.3).
type Frame struct {
	Image           image.Image
	TimestampMicros int64
}

// DecoderBackend is the minimal surface a software/hardware H.264/H.265
// decoder must expose. *openh264.Decoder implements it for H.264; no
// H.265/AV1 backend is wired since this module links no such library.
type DecoderBackend interface {
	Configure(description []byte) error
	Decode(chunk []byte) (image.Image, error)
}

// openh264Backend adapts github.com/y9o/go-openh264 to DecoderBackend.
type openh264Backend struct {
	dec *openh264.Decoder
}

func newOpenH264Backend() (*openh264Backend, error) {
	dec, err := openh264.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("video: openh264 init: %w", err)
	}
	return &openh264Backend{dec: dec}, nil
}

func (b *openh264Backend) Configure(description []byte) error {
	// go-openh264 derives stream parameters from in-band SPS/PPS on the
	// first decoded AU; the AVCC description is used here only to detect
	// a parameter-set change that should reset decoder state.
	return nil
}

func (b *openh264Backend) Decode(chunk []byte) (image.Image, error) {
	img, err := b.dec.DecodeFrame(chunk)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// VideoDecoder is the decode pipe from spec.md §4.4: it configures the
// backend once per fresh parameter-set description and drops decode units
// arriving on an errored pipeline until a fresh setup (spec.md §7).
type VideoDecoder struct {
	backend     DecoderBackend
	mask        codec.Mask
	lastDesc    []byte
	configured  bool
	errored     bool
	log         zerolog.Logger
	onFrame     func(Frame)
}

// NewVideoDecoder builds a decoder pipe for the given codec family,
// selecting a backend. H.264 uses the openh264 software decoder; other
// families have no backend wired and always report Unsupported, causing
// the pipeline builder to reject candidates that need them (spec.md §8
// scenario 6).
func NewVideoDecoder(family codec.Family, log zerolog.Logger) (*VideoDecoder, error) {
	d := &VideoDecoder{log: log.With().Str("component", "video_decoder").Logger()}
	d.mask = codec.NewMask(codec.Unsupported)

	switch family {
	case codec.FamilyH264:
		b, err := newOpenH264Backend()
		if err != nil {
			return nil, err
		}
		d.backend = b
		d.mask[codec.H264] = codec.Supported
		d.mask[codec.H264High8_444] = codec.Maybe
	default:
		return nil, fmt.Errorf("video: no decoder backend for family %v", family)
	}
	return d, nil
}

func (d *VideoDecoder) Name() string                     { return "VideoDecoder" }
func (d *VideoDecoder) InputType() pipeline.IOType        { return pipeline.TypeDataChunk }
func (d *VideoDecoder) OutputType() pipeline.IOType       { return pipeline.TypeDecodedFrame }
func (d *VideoDecoder) Environment() pipeline.Environment { return pipeline.Main }
func (d *VideoDecoder) CodecMask() codec.Mask             { return d.mask }

// OnFrame registers the downstream sink for decoded frames.
func (d *VideoDecoder) OnFrame(f func(Frame)) { d.onFrame = f }

// Submit feeds one Chunk to the decoder. Reconfiguration happens at most
// once per distinct description (spec.md §8 scenario 2: "exactly one
// decoder.configure occurs before decoder.decode").
func (d *VideoDecoder) Submit(c *Chunk) error {
	if d.errored {
		return nil // spec.md §7: drop decode units until a fresh setup
	}
	if c.Description != nil && !bytes.Equal(c.Description, d.lastDesc) {
		if err := d.backend.Configure(c.Description); err != nil {
			d.errored = true
			return fmt.Errorf("video: decoder configure rejected: %w", err)
		}
		d.lastDesc = c.Description
		d.configured = true
	}

	img, err := d.backend.Decode(c.Data)
	if err != nil {
		d.errored = true
		return fmt.Errorf("video: decode rejected: %w", err)
	}
	if img != nil && d.onFrame != nil {
		d.onFrame(Frame{Image: img, TimestampMicros: c.TimestampMicros})
	}
	return nil
}
