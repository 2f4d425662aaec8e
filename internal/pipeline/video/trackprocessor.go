package video

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// TrackReader is the minimal surface a webrtc.TrackRemote needs to expose
// for TrackProcessor, kept as an interface for testability.
type TrackReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackProcessor is spec.md §4.4.2's MediaStreamTrackProcessor pipe,
// continuously reading from an inbound track's background read loop and
// submitting each reassembled Annex-B access unit to the downstream
// decoder. Re-attaching to a new track cancels the previous reader and
// starts a new one.
type TrackProcessor struct {
	dep     *Depacketizer
	dec     *VideoDecoder
	log     zerolog.Logger
	mu      sync.Mutex
	cancel  chan struct{}
	payload codecs.H264Packet
}

func NewTrackProcessor(dep *Depacketizer, dec *VideoDecoder, log zerolog.Logger) *TrackProcessor {
	return &TrackProcessor{dep: dep, dec: dec, log: log.With().Str("component", "track_processor").Logger()}
}

func (p *TrackProcessor) Name() string                     { return "MediaStreamTrackProcessor" }
func (p *TrackProcessor) InputType() pipeline.IOType        { return pipeline.TypeVideoTrack }
func (p *TrackProcessor) OutputType() pipeline.IOType       { return pipeline.TypeDecodedFrame }
func (p *TrackProcessor) Environment() pipeline.Environment { return pipeline.Main }
func (p *TrackProcessor) CodecMask() codec.Mask             { return p.dep.CodecMask() }

// SetTrack cancels any previous read loop and starts reading from track.
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
				p.log.Info().Msg("inbound track ended")
			} else {
				p.log.Warn().Err(err).Msg("track read error")
			}
			return
		}
		au, err := p.payload.Unmarshal(pkt.Payload)
		if err != nil || len(au) == 0 {
			continue
		}
		// The H.264 RTP clock runs at 90 kHz; convert to microseconds.
		chunk, err := p.dep.Process(au, int64(pkt.Timestamp)*1_000_000/90_000, 0)
		if err != nil {
			p.log.Warn().Err(err).Msg("depacketize failed")
			continue
		}
		if chunk == nil {
			continue
		}
		if err := p.dec.Submit(chunk); err != nil {
			p.log.Warn().Err(err).Msg("decode failed")
		}
	}
}
