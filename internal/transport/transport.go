// Package transport defines the channel abstraction shared by the WebRTC
// and WebSocket-fallback transports (spec.md §3 "TransportChannel", §4.2,
// §4.3).
package transport

// ChannelID identifies one logical channel. ControllerN channels are
// opened per gamepad slot at runtime (see internal/app/loop.go).
type ChannelID string

const (
	ChannelHostVideo   ChannelID = "HOST_VIDEO"
	ChannelHostAudio   ChannelID = "HOST_AUDIO"
	ChannelGeneral     ChannelID = "general"
	ChannelKeyboard    ChannelID = "keyboard"
	ChannelMouse       ChannelID = "mouse"
	ChannelTouch       ChannelID = "touch"
	ChannelControllers ChannelID = "controllers"
	ChannelStats       ChannelID = "stats"
)

// ControllerChannel returns the per-slot channel id "controllerN".
func ControllerChannel(slot int) ChannelID {
	return ChannelID("controller" + itoa(slot))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Policy is a channel's delivery contract, from the table in spec.md §3.
type Policy struct {
	Ordered  bool
	Reliable bool
}

// Policies is the per-channel policy table. Media channels (HOST_VIDEO,
// HOST_AUDIO) aren't byte-frame channels and are absent here; they are
// negotiated as inbound tracks instead.
var Policies = map[ChannelID]Policy{
	ChannelGeneral:     {Ordered: true, Reliable: true},
	ChannelKeyboard:    {Ordered: true, Reliable: true},
	ChannelMouse:       {Ordered: true, Reliable: false},
	ChannelTouch:       {Ordered: true, Reliable: false},
	ChannelControllers: {Ordered: true, Reliable: true},
	ChannelStats:       {Ordered: true, Reliable: true},
}

// ControllerChannelPolicy is the policy for every "controllerN" channel,
// which isn't a fixed key in Policies since N is dynamic.
var ControllerChannelPolicy = Policy{Ordered: true, Reliable: false}

// DataChannel is a bidirectional byte-frame channel: outbound frames are
// sent immediately when open, otherwise queued; inbound frames fan out to
// registered listeners (spec.md §4.2 "Data channel wrapper").
type DataChannel interface {
	ID() ChannelID
	Send(frame []byte) error
	OnMessage(func(frame []byte))
	BufferedAmount() int
	Close() error
}

// MediaTrack is a lazy inbound media track (HOST_VIDEO / HOST_AUDIO).
type MediaTrack interface {
	ID() ChannelID
	Kind() string // "video" | "audio"
}

// RecoveryHint mirrors apierr.Hint without importing it, so transports
// stay decoupled from the error taxonomy package; callers translate.
type RecoveryHint string

const (
	HintRecover RecoveryHint = "recover"
	HintFatal   RecoveryHint = "fatal"
)

// Transport is the common surface the session state machine drives,
// implemented by both rtc.Transport and wsock.Transport.
type Transport interface {
	// Start begins negotiation. Must be called at most once.
	Start() error
	// Channel returns the named data channel, creating it if this
	// transport creates channels lazily. ok is false if the channel name
	// is not valid for this transport.
	Channel(id ChannelID) (DataChannel, bool)
	// OnTrack registers a callback for inbound media tracks becoming
	// available. WebSocket-fallback transports never call it.
	OnTrack(func(MediaTrack))
	// OnStateChange reports "recover"/"fatal" transitions (spec.md §4.2).
	OnStateChange(func(RecoveryHint))
	Close() error
}
