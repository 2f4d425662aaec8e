package audio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/pipeline"
)

// Sink is spec.md §4.6's "audio element / Web Audio sink" terminal stage,
// backed by an SDL2 queued-audio playback device (grounded on the teacher
// repo's go-sdl2 dependency, the same library backing video's renderer).
type Sink struct {
	deviceID   sdl.AudioDeviceID
	channels   int
	sampleRate int
	muted      bool
	log        zerolog.Logger
}

// NewSink opens a float32 playback device matching the negotiated stream
// parameters. PlayAudioLocal false (spec.md StreamSettings) mutes output
// without tearing down the device, matching the queue-and-discard shape of
// a muted <audio> element.
func NewSink(channels, sampleRate int, playLocal bool, log zerolog.Logger) (*Sink, error) {
	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_F32SYS,
		Channels: uint8(channels),
		Samples:  1024,
	}
	devID, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("audio: open playback device: %w", err)
	}
	sdl.PauseAudioDevice(devID, false)
	return &Sink{deviceID: devID, channels: channels, sampleRate: sampleRate, muted: !playLocal, log: log.With().Str("component", "audio_sink").Logger()}, nil
}

func (s *Sink) Name() string                     { return "AudioSink" }
func (s *Sink) InputType() pipeline.IOType        { return pipeline.TypeDecodedFrame }
func (s *Sink) Environment() pipeline.Environment { return pipeline.Main }

// SetMuted toggles PlayAudioLocal at runtime without reopening the device.
func (s *Sink) SetMuted(muted bool) { s.muted = muted }

// Queue enqueues decoded PCM for playback (spec.md §4.6's decoder -> sink
// edge). Frames arriving while muted are dropped rather than queued, so
// muting doesn't build unbounded backlog.
func (s *Sink) Queue(samples Samples) error {
	if s.muted {
		return nil
	}
	return sdl.QueueAudio(s.deviceID, float32SliceToBytes(samples.PCM))
}

func (s *Sink) Close() error {
	sdl.CloseAudioDevice(s.deviceID)
	return nil
}

func float32SliceToBytes(pcm []float32) []byte {
	const bytesPerSample = 4
	out := make([]byte, len(pcm)*bytesPerSample)
	for i, v := range pcm {
		bits := math.Float32bits(v)
		o := i * bytesPerSample
		out[o] = byte(bits)
		out[o+1] = byte(bits >> 8)
		out[o+2] = byte(bits >> 16)
		out[o+3] = byte(bits >> 24)
	}
	return out
}
