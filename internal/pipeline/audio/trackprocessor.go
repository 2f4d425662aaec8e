package audio

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// TrackReader mirrors video.TrackReader; Opus RTP payloads need no
// depacketization (the payload is the encoded frame, unlike H.264/H.265's
// FU-A fragmentation), so the reader feeds the decoder directly.
type TrackReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackProcessor is the track-ingest half of spec.md §4.6's audio pipeline,
// grounded on video.TrackProcessor's re-attach/cancel shape.
type TrackProcessor struct {
	dec    *Decoder
	log    zerolog.Logger
	mu     sync.Mutex
	cancel chan struct{}
}

func NewTrackProcessor(dec *Decoder, log zerolog.Logger) *TrackProcessor {
	return &TrackProcessor{dec: dec, log: log.With().Str("component", "audio_track_processor").Logger()}
}

func (p *TrackProcessor) Name() string                     { return "AudioTrackProcessor" }
func (p *TrackProcessor) InputType() pipeline.IOType        { return pipeline.TypeVideoTrack }
func (p *TrackProcessor) OutputType() pipeline.IOType       { return pipeline.TypeDecodedFrame }
func (p *TrackProcessor) Environment() pipeline.Environment { return pipeline.Main }
func (p *TrackProcessor) CodecMask() codec.Mask             { return opusMask() }

func (p *TrackProcessor) SetTrack(track TrackReader) {
	p.mu.Lock()
	if p.cancel != nil {
		close(p.cancel)
	}
	stop := make(chan struct{})
	p.cancel = stop
	p.mu.Unlock()

	go p.readLoop(track, stop)
}

func (p *TrackProcessor) readLoop(track TrackReader, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.log.Info().Msg("inbound audio track ended")
			} else {
				p.log.Warn().Err(err).Msg("audio track read error")
			}
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		// The Opus RTP clock runs at 48 kHz; convert to microseconds.
		if err := p.dec.Submit(&Chunk{Data: pkt.Payload, TimestampMicros: int64(pkt.Timestamp) * 1_000_000 / 48_000}); err != nil {
			p.log.Warn().Err(err).Msg("audio decode failed")
		}
	}
}
