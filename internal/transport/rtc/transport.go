// Package rtc implements the WebRTC transport from spec.md §4.2: a
// perfect-negotiation polite peer that registers the standard data
// channels and ingests inbound media tracks. Grounded on the teacher's polite-peer handling
// in client/client.go (makingOffer flag, queued ICE candidates) and
// webrtc/client.go (per-channel setup), generalized from a multi-peer mesh
// to this client's single upstream peer.
package rtc

import (
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/signaling"
	"github.com/n0remac/streamclient/internal/transport"
)

// SignalSender is how the transport ships outbound SDP/ICE back to the
// server; session.Session implements it via SendSignal.
type SignalSender interface {
	SendSignal(signaling.WebRTCSignal) error
}

// Transport is the WebRTC implementation of transport.Transport. The
// client is always the polite peer (spec.md GLOSSARY).
type Transport struct {
	pc     *webrtc.PeerConnection
	sender SignalSender
	log    zerolog.Logger

	mu          sync.Mutex
	makingOffer bool
	queuedCands []webrtc.ICECandidateInit

	channels   map[transport.ChannelID]*dataChannel
	onTrack    func(transport.MediaTrack)
	onState    func(transport.RecoveryHint)
	onRTCP     func([]rtcp.Packet)
	started    bool
}

// New builds (but does not Start) a WebRTC transport against the given ICE
// servers.
func New(iceServers []signaling.IceServer, sender SignalSender, log zerolog.Logger) (*Transport, error) {
	var cfg webrtc.Configuration
	for _, s := range iceServers {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("rtc: new peer connection: %w", err)
	}

	t := &Transport{
		pc:       pc,
		sender:   sender,
		log:      log.With().Str("component", "rtc").Logger(),
		channels: make(map[transport.ChannelID]*dataChannel),
	}
	t.wire()
	return t, nil
}

func (t *Transport) wire() {
	t.pc.OnNegotiationNeeded(func() {
		t.mu.Lock()
		t.makingOffer = true
		t.mu.Unlock()

		offer, err := t.pc.CreateOffer(nil)
		if err != nil {
			t.log.Error().Err(err).Msg("CreateOffer failed")
			return
		}
		if err := t.pc.SetLocalDescription(offer); err != nil {
			t.log.Error().Err(err).Msg("SetLocalDescription(offer) failed")
			return
		}
		_ = t.sender.SendSignal(signaling.WebRTCSignal{Description: &signaling.Description{
			Type: "offer", SDP: t.pc.LocalDescription().SDP,
		}})

		t.mu.Lock()
		t.makingOffer = false
		t.mu.Unlock()
	})

	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		ice := c.ToJSON()
		_ = t.sender.SendSignal(signaling.WebRTCSignal{AddIceCandidate: &signaling.ICECandidate{
			Candidate:     ice.Candidate,
			SDPMid:        ice.SDPMid,
			SDPMLineIndex: ice.SDPMLineIndex,
		}})
	})

	t.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateConnected:
			t.surface(transport.HintRecover)
		case webrtc.PeerConnectionStateFailed:
			t.surface(transport.HintFatal)
		case webrtc.PeerConnectionStateDisconnected:
			if t.pc.ICEGatheringState() == webrtc.ICEGatheringStateComplete {
				t.surface(transport.HintFatal)
			}
		}
	})

	t.pc.OnTrack(func(tr *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		t.tuneReceiver(tr)
		if tr.Kind() == webrtc.RTPCodecTypeVideo {
			go t.readRTCP(receiver)
		}
		if t.onTrack != nil {
			kind := "audio"
			id := transport.ChannelHostAudio
			if tr.Kind() == webrtc.RTPCodecTypeVideo {
				kind = "video"
				id = transport.ChannelHostVideo
			}
			t.onTrack(&remoteTrack{id: id, kind: kind, track: tr})
		}
	})
}

// readRTCP drains the host's RTCP Sender Reports for the video track
// (the "host-processing" half of spec.md §4.7's stats, read directly off
// the wire rather than through pion's aggregated GetStats() snapshot) and
// forwards each decoded packet batch to onRTCP until the receiver closes.
func (t *Transport) readRTCP(receiver *webrtc.RTPReceiver) {
	buf := make([]byte, 1500)
	for {
		n, _, err := receiver.Read(buf)
		if err != nil {
			return
		}
		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		if t.onRTCP != nil {
			t.onRTCP(pkts)
		}
	}
}

// OnRTCP registers the callback invoked with each batch of RTCP packets
// read off the inbound video track's receiver.
func (t *Transport) OnRTCP(f func([]rtcp.Packet)) { t.onRTCP = f }

// tuneReceiver runs a 15ms ticker for an inbound video track until the peer
// connection closes. It sets no content hint and no jitter-buffer target:
// each tick does nothing.
func (t *Transport) tuneReceiver(tr *webrtc.TrackRemote) {
	if tr.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	ticker := time.NewTicker(15 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			if t.pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
				return
			}
			// Real jitter-buffer-target control lives behind the
			// browser's RTCRtpReceiver; pion exposes no equivalent knob
			// today, so this loop is the hook future decoder-side jitter
			// tuning attaches to.
		}
	}()
}

func (t *Transport) surface(hint transport.RecoveryHint) {
	if t.onState != nil {
		t.onState(hint)
	}
}

// Start registers the standard data channel set (spec.md §3 policy
// table) and marks the peer ready to negotiate.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("rtc: transport already started")
	}
	t.started = true

	for id, policy := range transport.Policies {
		if id == transport.ChannelHostVideo || id == transport.ChannelHostAudio {
			continue
		}
		ordered := policy.Ordered
		reliable := policy.Reliable
		init := &webrtc.DataChannelInit{Ordered: &ordered}
		if !reliable {
			zero := uint16(0)
			init.MaxRetransmits = &zero
		}
		dc, err := t.pc.CreateDataChannel(string(id), init)
		if err != nil {
			return fmt.Errorf("rtc: create data channel %s: %w", id, err)
		}
		t.channels[id] = wrapDataChannel(id, dc)
	}
	return nil
}

func (t *Transport) Channel(id transport.ChannelID) (transport.DataChannel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dc, ok := t.channels[id]
	return dc, ok
}

// OpenControllerChannel lazily creates a "controllerN" channel for a newly
// attached gamepad slot.
func (t *Transport) OpenControllerChannel(id transport.ChannelID) (transport.DataChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dc, ok := t.channels[id]; ok {
		return dc, nil
	}
	ordered := true
	zero := uint16(0)
	dc, err := t.pc.CreateDataChannel(string(id), &webrtc.DataChannelInit{Ordered: &ordered, MaxRetransmits: &zero})
	if err != nil {
		return nil, err
	}
	wrapped := wrapDataChannel(id, dc)
	t.channels[id] = wrapped
	return wrapped, nil
}

func (t *Transport) OnTrack(f func(transport.MediaTrack))         { t.onTrack = f }
func (t *Transport) OnStateChange(f func(transport.RecoveryHint)) { t.onState = f }

// PeerConnection exposes the underlying pion connection so callers can
// poll WebRTC stats (spec.md §4.7); no other transport.Transport method
// needs it.
func (t *Transport) PeerConnection() *webrtc.PeerConnection { return t.pc }

func (t *Transport) Close() error {
	return t.pc.Close()
}

// ReceiveSignal implements session.SignalReceiver: an incoming Description
// is set as remote (answering if it was an offer, per the polite-peer
// protocol); an incoming AddIceCandidate is buffered until the peer has a
// remote description, matching the teacher's queuedCandidates handling.
func (t *Transport) ReceiveSignal(sig signaling.WebRTCSignal) {
	switch {
	case sig.Description != nil:
		t.handleDescription(*sig.Description)
	case sig.AddIceCandidate != nil:
		t.handleCandidate(*sig.AddIceCandidate)
	}
}

func (t *Transport) handleDescription(d signaling.Description) {
	sdpType := webrtc.SDPTypeOffer
	if d.Type == "answer" {
		sdpType = webrtc.SDPTypeAnswer
	}
	if err := t.pc.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: d.SDP}); err != nil {
		t.log.Error().Err(err).Msg("SetRemoteDescription failed")
		return
	}

	t.flushQueuedCandidates()

	if sdpType == webrtc.SDPTypeOffer {
		answer, err := t.pc.CreateAnswer(nil)
		if err != nil {
			t.log.Error().Err(err).Msg("CreateAnswer failed")
			return
		}
		if err := t.pc.SetLocalDescription(answer); err != nil {
			t.log.Error().Err(err).Msg("SetLocalDescription(answer) failed")
			return
		}
		_ = t.sender.SendSignal(signaling.WebRTCSignal{Description: &signaling.Description{
			Type: "answer", SDP: t.pc.LocalDescription().SDP,
		}})
	}
}

func (t *Transport) handleCandidate(c signaling.ICECandidate) {
	init := webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pc.RemoteDescription() == nil {
		t.queuedCands = append(t.queuedCands, init)
		return
	}
	if err := t.pc.AddICECandidate(init); err != nil {
		t.log.Error().Err(err).Msg("AddICECandidate failed")
	}
}

func (t *Transport) flushQueuedCandidates() {
	t.mu.Lock()
	pending := t.queuedCands
	t.queuedCands = nil
	t.mu.Unlock()
	for _, c := range pending {
		if err := t.pc.AddICECandidate(c); err != nil {
			t.log.Error().Err(err).Msg("queued AddICECandidate failed")
		}
	}
}

type remoteTrack struct {
	id    transport.ChannelID
	kind  string
	track *webrtc.TrackRemote
}

func (r *remoteTrack) ID() transport.ChannelID { return r.id }
func (r *remoteTrack) Kind() string            { return r.kind }
func (r *remoteTrack) Track() *webrtc.TrackRemote { return r.track }
