// Package session implements the signaling & session state machine from
// spec.md §4.1: Idle → AwaitingSetup → Negotiating(transport) → Streaming →
// Terminated|Fatal, driven by JSON envelopes on the control WebSocket.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/apierr"
	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/signaling"
	"github.com/n0remac/streamclient/internal/transport"
)

// Params are the Session attributes from spec.md §3, set at mount.
type Params struct {
	HostID               string
	AppID                string
	Bitrate              int
	PacketSize           int
	FPS                  int
	Width                int
	Height               int
	VideoFrameQueueSize  int
	AudioSampleQueueSize int
	PlayAudioLocal       bool
	Colorspace           string
	FullRange            bool
	PreferredTransport   signaling.TransportKind // Auto tries WebRTC then WebSocket
}

// Conn is the minimal surface of *gorilla/websocket.Conn the state machine
// needs, kept as an interface so tests can supply a fake control channel.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// TransportFactory builds and starts the transport selected for
// Negotiating, given the ICE servers from Setup.
type TransportFactory func(kind signaling.TransportKind, iceServers []signaling.IceServer) (transport.Transport, error)

// Observer receives session lifecycle events. Every method is optional;
// a nil field is simply not called.
type Observer struct {
	OnInfo                func(origin, line string)
	OnConnectionComplete  func(signaling.ConnectionComplete, transport.Transport)
	OnUpdateApp           func(json.RawMessage)
	OnRecover             func()
	OnFatal               func(*apierr.Error)
}

// Session drives one viewer's connection lifecycle.
type Session struct {
	ID     uuid.UUID
	params Params
	conn   Conn
	newTransport TransportFactory
	probe  codec.Mask
	obs    Observer
	log    zerolog.Logger

	writeMu sync.Mutex
	opened  bool
	pending [][]byte

	mu          sync.Mutex
	state       State
	iceServers  []signaling.IceServer
	started     map[string]bool // stages with StageStarting seen, not yet resolved
	gotComplete bool
	transport   transport.Transport
}

// New constructs a Session. conn is already dialed (or a test fake); the
// control channel is considered open immediately (this client has no
// async "open" event distinct from a successful Dial).
func New(conn Conn, params Params, probe codec.Mask, factory TransportFactory, obs Observer, log zerolog.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:           id,
		params:       params,
		conn:         conn,
		newTransport: factory,
		probe:        probe,
		obs:          obs,
		log:          log.With().Str("component", "session").Str("session_id", id.String()).Logger(),
		state:        Idle,
		started:      make(map[string]bool),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start sends Init immediately (queuing is moot once WriteMessage
// succeeds, but the pre-open queue is kept so a transport swap-in test
// double can simulate async opens) and begins the inbound read loop. It
// blocks until a control-channel read fails, a malformed frame arrives, or
// the server terminates the connection; other fatal errors are reported
// through Observer.OnFatal while reading continues.
func (s *Session) Start() error {
	s.markOpen()
	if err := s.sendInit(); err != nil {
		return err
	}
	s.setState(AwaitingSetup)
	return s.readLoop()
}

func (s *Session) markOpen() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.opened = true
	for _, f := range s.pending {
		_ = s.conn.WriteMessage(1, f)
	}
	s.pending = nil
}

func (s *Session) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.opened {
		s.pending = append(s.pending, data)
		return nil
	}
	return s.conn.WriteMessage(1, data)
}

func (s *Session) sendInit() error {
	return s.writeJSON(signaling.ClientInit{Init: &signaling.InitPayload{
		HostID:                       s.params.HostID,
		AppID:                        s.params.AppID,
		Bitrate:                      s.params.Bitrate,
		PacketSize:                   s.params.PacketSize,
		FPS:                          s.params.FPS,
		Width:                        s.params.Width,
		Height:                       s.params.Height,
		VideoFrameQueueSize:          s.params.VideoFrameQueueSize,
		PlayAudioLocal:               s.params.PlayAudioLocal,
		AudioSampleQueueSize:         s.params.AudioSampleQueueSize,
		VideoSupportedFormatsBitmask: s.probe.Bitmask(),
		Colorspace:                   s.params.Colorspace,
		FullRange:                    s.params.FullRange,
	}})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) readLoop() error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := signaling.Decode(data)
		if err != nil {
			s.fatal(apierr.KindProtocol, "Server", fmt.Errorf("malformed signaling frame: %w", err))
			return err
		}
		if err := s.handle(msg); err != nil {
			return err
		}
	}
}

func (s *Session) handle(msg signaling.ServerMessage) error {
	switch {
	case msg.IsServerMessage():
		s.info("Server", msg.Raw)

	case msg.StageStarting != nil:
		s.mu.Lock()
		s.started[msg.StageStarting.Stage] = true
		s.mu.Unlock()

	case msg.StageComplete != nil:
		s.resolveStage(msg.StageComplete.Stage)

	case msg.StageFailed != nil:
		s.resolveStage(msg.StageFailed.Stage)
		s.fatal(apierr.KindProtocol, "Server", fmt.Errorf("stage %q failed: code %d", msg.StageFailed.Stage, msg.StageFailed.ErrorCode))

	case msg.Setup != nil:
		s.mu.Lock()
		s.iceServers = msg.Setup.IceServers
		s.mu.Unlock()
		s.setState(Negotiating)
		if err := s.startTransport(); err != nil {
			s.fatal(apierr.KindTransportFatal, "WebRTC", err)
		}

	case msg.ConnectionComplete != nil:
		s.mu.Lock()
		s.gotComplete = true
		tp := s.transport
		s.mu.Unlock()
		s.setState(Streaming)
		if s.obs.OnConnectionComplete != nil {
			s.obs.OnConnectionComplete(*msg.ConnectionComplete, tp)
		}

	case msg.ConnectionTerminated != nil:
		s.setState(Terminated)
		s.fatal(apierr.KindTransportFatal, "Server", fmt.Errorf("connection terminated: code %d", msg.ConnectionTerminated.ErrorCode))
		return fmt.Errorf("connection terminated: code %d", msg.ConnectionTerminated.ErrorCode)

	case msg.UpdateApp != nil:
		if s.obs.OnUpdateApp != nil {
			s.obs.OnUpdateApp(msg.UpdateApp.App)
		}

	case msg.WebRtc != nil:
		s.forwardSignal(*msg.WebRtc)
	}
	return nil
}

func (s *Session) resolveStage(stage string) {
	s.mu.Lock()
	delete(s.started, stage)
	s.mu.Unlock()
}

func (s *Session) startTransport() error {
	s.mu.Lock()
	kind := s.params.PreferredTransport
	ice := s.iceServers
	s.mu.Unlock()

	if kind == "" {
		kind = signaling.TransportAuto
	}
	tryKind := kind
	if kind == signaling.TransportAuto {
		tryKind = signaling.TransportWebRTC
	}

	if err := s.writeJSON(signaling.ClientSetTransport{SetTransport: tryKind}); err != nil {
		return err
	}

	tp, err := s.newTransport(tryKind, ice)
	if err != nil {
		if kind == signaling.TransportAuto {
			s.log.Warn().Err(err).Msg("WebRTC transport failed, falling back to WebSocket")
			if err := s.writeJSON(signaling.ClientSetTransport{SetTransport: signaling.TransportWebSocket}); err != nil {
				return err
			}
			tp, err = s.newTransport(signaling.TransportWebSocket, ice)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	tp.OnStateChange(func(hint transport.RecoveryHint) {
		if hint == transport.HintFatal {
			s.fatal(apierr.KindTransportFatal, "WebRTC", fmt.Errorf("transport failed"))
		} else {
			s.recover()
		}
	})

	if err := tp.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.transport = tp
	s.mu.Unlock()
	return nil
}

// forwardSignal relays a server WebRtc signal to the active transport's
// signaling sink. The WebRTC transport receives them by implementing
// SignalReceiver; other transports ignore them. At this layer
// we only guarantee Setup precedes any WebRtc signaling per spec.md §4.1,
// which holds because startTransport runs synchronously from the Setup
// branch above before any WebRtc message can be processed.
func (s *Session) forwardSignal(sig signaling.WebRTCSignal) {
	s.mu.Lock()
	tp := s.transport
	s.mu.Unlock()
	if tp == nil {
		return
	}
	if recv, ok := tp.(SignalReceiver); ok {
		recv.ReceiveSignal(sig)
	}
}

// SignalReceiver is implemented by transports that consume inbound WebRtc
// signaling payloads (the WebRTC transport; the WebSocket fallback never
// receives these).
type SignalReceiver interface {
	ReceiveSignal(signaling.WebRTCSignal)
}

// SendSignal pushes an outbound WebRtc signal (answer/offer/candidate) to
// the server. Called by the WebRTC transport via the session it was
// constructed against.
func (s *Session) SendSignal(sig signaling.WebRTCSignal) error {
	return s.writeJSON(signaling.ClientWebRTC{WebRtc: sig})
}

func (s *Session) info(origin, line string) {
	if s.obs.OnInfo != nil {
		s.obs.OnInfo(origin, line)
	}
}

func (s *Session) recover() {
	if s.obs.OnRecover != nil {
		s.obs.OnRecover()
	}
}

func (s *Session) fatal(kind apierr.Kind, origin string, err error) {
	s.setState(Fatal)
	s.mu.Lock()
	tp := s.transport
	s.mu.Unlock()
	if tp != nil {
		_ = tp.Close()
	}
	if s.obs.OnFatal != nil {
		s.obs.OnFatal(apierr.Fatal(kind, origin, err))
	}
}

// Streaming reports whether ConnectionComplete was observed and the state
// machine reached Streaming, the invariant from spec.md §8.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Streaming && s.gotComplete
}
