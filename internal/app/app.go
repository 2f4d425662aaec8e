// Package app wires the session state machine, transports, media
// pipelines, and input subsystem into one running client, the way the
// teacher's client.Setup function wires its robot-control client
// end-to-end.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/apierr"
	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/input"
	"github.com/n0remac/streamclient/internal/pipeline"
	"github.com/n0remac/streamclient/internal/pipeline/audio"
	"github.com/n0remac/streamclient/internal/pipeline/video"
	"github.com/n0remac/streamclient/internal/session"
	"github.com/n0remac/streamclient/internal/signaling"
	"github.com/n0remac/streamclient/internal/stats"
	"github.com/n0remac/streamclient/internal/transport"
	"github.com/n0remac/streamclient/internal/transport/rtc"
	"github.com/n0remac/streamclient/internal/transport/wsock"
	"github.com/n0remac/streamclient/internal/wire"
)

// Options are the connection parameters sourced from CLI flags/config
// (spec.md §3 Session attributes).
type Options struct {
	ServerURL            string
	HostID               string
	AppID                string
	Bitrate              int
	PacketSize           int
	FPS                  int
	Width                int
	Height               int
	VideoFrameQueueSize  int
	AudioSampleQueueSize int
	Colorspace           string
	FullRange            bool
	PreferredTransport   signaling.TransportKind
	Settings             config.StreamSettings
}

// trackSource is satisfied by the rtc transport's inbound media track
// wrapper; asserted against transport.MediaTrack so app stays decoupled
// from the rtc package's unexported concrete type.
type trackSource interface {
	Track() *webrtc.TrackRemote
}

// Client owns one end-to-end connection: session, transport, media
// pipelines, and the SDL-backed input/render loop.
type Client struct {
	opts  Options
	log   zerolog.Logger
	probe codec.Mask

	sess      *session.Session
	transport transport.Transport
	videoSSRC webrtc.SSRC
	hasSSRC   bool

	video *video.Built
	audio *audio.Built

	mouseTracker *input.Tracker
	touchSession *input.Session
	gamepads     *input.Poller
	statsColl    *stats.Collector

	ready chan struct{}
	fatal chan *apierr.Error
}

// New constructs a Client probed for the codec backends this binary links
// in (only H.264 today, via y9o/go-openh264).
func New(opts Options, log zerolog.Logger) *Client {
	return &Client{
		opts:      opts,
		log:       log,
		probe:     codec.Detect(codec.Probe{H264Decoder: true}),
		gamepads:  input.NewPoller(log),
		statsColl: stats.NewCollector(),
		ready:     make(chan struct{}, 1),
		fatal:     make(chan *apierr.Error, 1),
	}
}

// Run dials the signaling server, drives the session state machine on a
// background goroutine, and runs the SDL render/input loop on the calling
// goroutine until ctx is cancelled or the session ends fatally. The
// caller must call this from the thread sdl.Init was locked to.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("app: dial signaling: %w", err)
	}

	params := session.Params{
		HostID:               c.opts.HostID,
		AppID:                c.opts.AppID,
		Bitrate:              c.opts.Bitrate,
		PacketSize:           c.opts.PacketSize,
		FPS:                  c.opts.FPS,
		Width:                c.opts.Width,
		Height:               c.opts.Height,
		VideoFrameQueueSize:  c.opts.VideoFrameQueueSize,
		AudioSampleQueueSize: c.opts.AudioSampleQueueSize,
		PlayAudioLocal:       !c.opts.Settings.AudioPassThrough,
		Colorspace:           c.opts.Colorspace,
		FullRange:            c.opts.FullRange,
		PreferredTransport:   c.opts.PreferredTransport,
	}

	c.sess = session.New(conn, params, c.probe, c.transportFactory, session.Observer{
		OnInfo: func(origin, line string) {
			c.log.Info().Str("origin", origin).Msg(line)
		},
		OnConnectionComplete: c.handleConnectionComplete,
		OnUpdateApp: func(app []byte) {
			c.log.Debug().RawJSON("app", app).Msg("app update")
		},
		OnRecover: func() {
			c.log.Warn().Msg("transport recovering")
		},
		OnFatal: func(e *apierr.Error) {
			select {
			case c.fatal <- e:
			default:
			}
		},
	}, c.log)

	errCh := make(chan error, 1)
	go func() { errCh <- c.sess.Start() }()

	rumbleStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-rumbleStop:
				return
			case <-ticker.C:
				c.gamepads.ReplayRumble()
			}
		}
	}()
	defer close(rumbleStop)

	return c.eventLoop(ctx, errCh)
}

// transportFactory implements session.TransportFactory: WebRTC builds a
// new peer connection against this client's session as the signal sender;
// WebSocket dials a second connection to the same signaling URL dedicated
// to the multiplexed fallback protocol (spec.md §9 open question (c)),
// since the control socket's own read loop already owns the first one.
func (c *Client) transportFactory(kind signaling.TransportKind, ice []signaling.IceServer) (transport.Transport, error) {
	switch kind {
	case signaling.TransportWebRTC:
		return rtc.New(ice, c.sess, c.log)
	case signaling.TransportWebSocket:
		conn, _, err := websocket.DefaultDialer.Dial(c.opts.ServerURL, nil)
		if err != nil {
			return nil, fmt.Errorf("app: dial fallback transport: %w", err)
		}
		return wsock.New(conn, c.log), nil
	default:
		return nil, fmt.Errorf("app: unknown transport kind %q", kind)
	}
}

func (c *Client) handleConnectionComplete(cc signaling.ConnectionComplete, tp transport.Transport) {
	c.transport = tp

	inputType := pipeline.TypeDataChunk
	if _, isRTC := tp.(*rtc.Transport); isRTC {
		inputType = pipeline.TypeVideoTrack
	}

	family := codec.FamilyH264
	if variant, ok := codec.FromBit(cc.Format); ok {
		family = variant.Family()
	}

	builtVideo, err := video.BuildPipeline(inputType, family, c.probe, c.opts.Settings.ForceCanvas, int32(cc.Width), int32(cc.Height), c.log)
	if err != nil {
		c.fatal <- apierr.Fatal(apierr.KindDecoder, "Video", err)
		return
	}
	c.video = builtVideo

	builtAudio, err := audio.BuildPipeline(inputType, cc.AudioSampleRate, cc.AudioChannels, !c.opts.Settings.AudioPassThrough, c.log)
	if err != nil {
		c.log.Warn().Err(err).Msg("audio pipeline unavailable, continuing video-only")
	}
	c.audio = builtAudio

	c.mouseTracker = input.NewTracker(mouseModeFromConfig(c.opts.Settings.MouseMode), input.ReferenceSpan, input.ReferenceSpan)
	rect := input.Rect{Left: 0, Top: 0, Width: float64(cc.Width), Height: float64(cc.Height)}
	c.touchSession = input.NewSession(touchModeFromConfig(c.opts.Settings.TouchMode), rect, cc.Capabilities.Touch)

	tp.OnTrack(c.handleTrack)

	if rtcTp, ok := tp.(*rtc.Transport); ok {
		rtcTp.OnRTCP(c.statsColl.ObserveRTCP)
	}

	if statsCh, ok := tp.Channel(transport.ChannelStats); ok {
		statsCh.OnMessage(func(frame []byte) {
			push, err := stats.DecodeServerPush(frame)
			if err != nil {
				c.log.Warn().Err(err).Msg("malformed stats push")
				return
			}
			c.statsColl.MergeServerPush(push)
		})
	}

	if ctrlCh, ok := tp.Channel(transport.ChannelControllers); ok {
		ctrlCh.OnMessage(c.handleControllerIngress)
	}

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *Client) handleTrack(mt transport.MediaTrack) {
	ts, ok := mt.(trackSource)
	if !ok {
		return
	}
	track := ts.Track()
	switch mt.Kind() {
	case "video":
		c.videoSSRC = track.SSRC()
		c.hasSSRC = true
		if c.video != nil && c.video.TrackProcessor != nil {
			c.video.TrackProcessor.SetTrack(track)
		}
	case "audio":
		if c.audio != nil && c.audio.TrackProcessor != nil {
			c.audio.TrackProcessor.SetTrack(track)
		}
	}
}

// handleControllerIngress decodes a rumble message arriving on the
// "controllers" channel (spec.md §4.5 rumble ingress) and stores it for
// the replay loop.
func (c *Client) handleControllerIngress(frame []byte) {
	cur := wire.WrapCursor(frame)
	tag, err := cur.GetUint8()
	if err != nil {
		return
	}
	slotID, err := cur.GetUint8()
	if err != nil {
		return
	}
	a, err := cur.GetUint16()
	if err != nil {
		return
	}
	b, err := cur.GetUint16()
	if err != nil {
		return
	}
	c.gamepads.SetRumble(slotID, tag, a, b)
}

func (c *Client) pollLocalStats() {
	rtcTp, ok := c.transport.(*rtc.Transport)
	if !ok || !c.hasSSRC {
		return
	}
	c.statsColl.CollectOnce(rtcTp.PeerConnection(), c.videoSSRC)
}

func mouseModeFromConfig(m config.MouseMode) input.Mode {
	switch m {
	case config.MouseModeFollow:
		return input.ModeFollow
	case config.MouseModePointAndDrag:
		return input.ModePointAndDrag
	default:
		return input.ModeRelative
	}
}

func touchModeFromConfig(m config.TouchMode) input.TouchMode {
	switch m {
	case config.TouchModeMouseRelative:
		return input.TouchModeMouseRelative
	case config.TouchModePointAndDrag:
		return input.TouchModePointAndDrag
	default:
		return input.TouchModeRaw
	}
}
