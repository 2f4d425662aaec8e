// Package audio implements spec.md §4.6's audio pipeline: Opus decode and
// playback, selected analogously to the video pipeline (track-ingest
// renderer or a data pipe terminating in a sink).
package audio

import (
	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Chunk is one data-mode audio unit (spec.md §4.6: "forward
// {durationMicroseconds, timestampMicroseconds, data} to the decoder").
// A timing field the source cannot report is left at 0; the track path
// never sets DurationMicros.
type Chunk struct {
	Data                             []byte
	TimestampMicros, DurationMicros  int64
}

// opusMask reports Opus as the only supported format; spec.md names no
// other audio codec, so every other variant stays at the AND identity
// (Supported) rather than being force-marked Unsupported, matching how
// codec.NewMask seeds a fresh mask.
func opusMask() codec.Mask {
	return codec.NewMask(codec.Supported)
}

// Passthrough is the identity pipe for data-mode audio: spec.md §4.6 sends
// chunks straight to the decoder with no container framing to strip, unlike
// video's Annex-B depacketizer. It exists so the audio candidate list has
// the same pipe-chain shape as video's (pipeline.Build doesn't special-case
// a single-pipe chain).
type Passthrough struct{}

func (Passthrough) Name() string                     { return "AudioPassthrough" }
func (Passthrough) InputType() pipeline.IOType        { return pipeline.TypeDataChunk }
func (Passthrough) OutputType() pipeline.IOType       { return pipeline.TypeDataChunk }
func (Passthrough) Environment() pipeline.Environment { return pipeline.Main }
func (Passthrough) CodecMask() codec.Mask             { return opusMask() }
