// Package signaling defines the JSON control-channel envelopes from
// spec.md §4.1: a WebSocket upgraded from the REST origin carrying a
// tagged union of client->server and server->client messages.
package signaling

import "encoding/json"

// ClientInit is the first message sent once the control channel opens.
type ClientInit struct {
	Init *InitPayload `json:"Init"`
}

type InitPayload struct {
	HostID                       string `json:"hostId"`
	AppID                        string `json:"appId"`
	Bitrate                      int    `json:"bitrate"`
	PacketSize                   int    `json:"packetSize"`
	FPS                          int    `json:"fps"`
	Width                        int    `json:"width"`
	Height                       int    `json:"height"`
	VideoFrameQueueSize          int    `json:"videoFrameQueueSize"`
	PlayAudioLocal               bool   `json:"playAudioLocal"`
	AudioSampleQueueSize         int    `json:"audioSampleQueueSize"`
	VideoSupportedFormatsBitmask uint32 `json:"videoSupportedFormatsBitmask"`
	Colorspace                   string `json:"colorspace"`
	FullRange                    bool   `json:"fullRange"`
}

// TransportKind is the client's chosen or auto-negotiated transport.
type TransportKind string

const (
	TransportAuto      TransportKind = "Auto"
	TransportWebRTC     TransportKind = "WebRTC"
	TransportWebSocket  TransportKind = "WebSocket"
)

// ClientSetTransport tells the server which transport the client intends
// to attempt.
type ClientSetTransport struct {
	SetTransport TransportKind `json:"SetTransport"`
}

// Description is an SDP offer/answer payload.
type Description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate mirrors the browser RTCIceCandidateInit shape.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// WebRTCSignal is either a Description or an AddIceCandidate, carried
// inside a WebRtc envelope in both directions.
type WebRTCSignal struct {
	Description     *Description  `json:"Description,omitempty"`
	AddIceCandidate *ICECandidate `json:"AddIceCandidate,omitempty"`
}

// ClientWebRTC wraps a WebRTCSignal for the client->server direction.
type ClientWebRTC struct {
	WebRtc WebRTCSignal `json:"WebRtc"`
}

// IceServer mirrors RTCIceServer.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ServerMessage is the tagged union of every message kind the server may
// send, decoded by inspecting which field is populated (see Decode).
// A message with none of the struct fields set and Raw non-empty is a
// bare string, per spec.md §9 open question (a).
type ServerMessage struct {
	StageStarting       *StageEvent         `json:"StageStarting,omitempty"`
	StageComplete       *StageEvent         `json:"StageComplete,omitempty"`
	StageFailed         *StageFailedEvent   `json:"StageFailed,omitempty"`
	Setup               *SetupPayload       `json:"Setup,omitempty"`
	ConnectionComplete  *ConnectionComplete `json:"ConnectionComplete,omitempty"`
	ConnectionTerminated *ConnectionTerminated `json:"ConnectionTerminated,omitempty"`
	UpdateApp           *UpdateAppPayload   `json:"UpdateApp,omitempty"`
	WebRtc              *WebRTCSignal       `json:"WebRtc,omitempty"`

	Raw string `json:"-"`
}

type StageEvent struct {
	Stage string `json:"stage"`
}

type StageFailedEvent struct {
	Stage     string `json:"stage"`
	ErrorCode int    `json:"errorCode"`
}

type SetupPayload struct {
	IceServers []IceServer `json:"ice_servers"`
}

type Capabilities struct {
	Touch bool `json:"touch"`
}

type ConnectionComplete struct {
	Capabilities     Capabilities `json:"capabilities"`
	Format           uint32       `json:"format"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	FPS              int          `json:"fps"`
	AudioChannels    int          `json:"audio_channels"`
	AudioSampleRate  int          `json:"audio_sample_rate"`
}

type ConnectionTerminated struct {
	ErrorCode int `json:"errorCode"`
}

type UpdateAppPayload struct {
	App json.RawMessage `json:"app"`
}

// Decode parses one inbound signaling frame. A frame that is a bare JSON
// string decodes into ServerMessage{Raw: s} with every tagged field nil;
// any other frame must be a JSON object and is decoded structurally.
func Decode(data []byte) (ServerMessage, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return ServerMessage{Raw: s}, nil
	}
	var m ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ServerMessage{}, err
	}
	return m, nil
}

// IsServerMessage reports whether this frame carried no recognized tag and
// should be surfaced as an opaque "serverMessage" info event.
func (m ServerMessage) IsServerMessage() bool {
	return m.Raw != "" &&
		m.StageStarting == nil && m.StageComplete == nil && m.StageFailed == nil &&
		m.Setup == nil && m.ConnectionComplete == nil && m.ConnectionTerminated == nil &&
		m.UpdateApp == nil && m.WebRtc == nil
}
