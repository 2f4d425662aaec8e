package audio

import (
	"fmt"

	"github.com/rs/zerolog"
	hopus "gopkg.in/hraban/opus.v2"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Samples is one decoded block of interleaved float32 PCM (spec.md §4.6,
// grounded on hraban/opus.v2's DecodeFloat32 output shape).
type Samples struct {
	PCM             []float32
	Channels        int
	SampleRate      int
	TimestampMicros int64
}

// Decoder wraps gopkg.in/hraban/opus.v2, the decoder this module's corpus
// uses for RTP Opus payloads.
type Decoder struct {
	dec        *hopus.Decoder
	channels   int
	sampleRate int
	scratch    []float32
	onSamples  func(Samples)
	log        zerolog.Logger
}

// NewDecoder builds an Opus decoder for the given stream parameters
// (spec.md ConnectionComplete's audioChannels/audioSampleRate).
func NewDecoder(sampleRate, channels int, log zerolog.Logger) (*Decoder, error) {
	dec, err := hopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: opus decoder init: %w", err)
	}
	const maxOpusFrameMS = 120
	maxFrameSamples := channels * maxOpusFrameMS * sampleRate / 1000
	return &Decoder{
		dec:        dec,
		channels:   channels,
		sampleRate: sampleRate,
		scratch:    make([]float32, maxFrameSamples),
		log:        log.With().Str("component", "audio_decoder").Logger(),
	}, nil
}

func (d *Decoder) Name() string                     { return "OpusDecoder" }
func (d *Decoder) InputType() pipeline.IOType        { return pipeline.TypeDataChunk }
func (d *Decoder) OutputType() pipeline.IOType       { return pipeline.TypeDecodedFrame }
func (d *Decoder) Environment() pipeline.Environment { return pipeline.Main }
func (d *Decoder) CodecMask() codec.Mask             { return opusMask() }

// OnSamples registers the downstream sink for decoded PCM.
func (d *Decoder) OnSamples(f func(Samples)) { d.onSamples = f }

// Submit decodes one Opus frame and forwards the result to the registered
// sink. A decode failure is logged and dropped rather than latched fatal:
// unlike video's SPS/PPS-gated keyframes, one bad Opus frame does not
// poison decoder state for subsequent frames.
func (d *Decoder) Submit(c *Chunk) error {
	n, err := d.dec.DecodeFloat32(c.Data, d.scratch)
	if err != nil {
		d.log.Warn().Err(err).Msg("opus decode failed")
		return nil
	}
	pcm := make([]float32, n*d.channels)
	copy(pcm, d.scratch[:n*d.channels])
	if d.onSamples != nil {
		d.onSamples(Samples{
			PCM:             pcm,
			Channels:        d.channels,
			SampleRate:      d.sampleRate,
			TimestampMicros: c.TimestampMicros,
		})
	}
	return nil
}
