// Package wsock implements the WebSocket fallback transport from
// spec.md §4.3: every logical channel is multiplexed onto one reliable
// ordered WebSocket, each frame length-prefixed and tagged with a channel
// id (the framing chosen to resolve spec.md §9 open question (c)).
//
// Grounded on the teacher's gorilla/websocket dial-and-read-loop idiom
// (client/client.go ConnectAndSignal) generalized from JSON frames to
// binary multiplexed frames.
package wsock

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/transport"
)

// channelIndex assigns a wire-stable byte id to every multiplexable
// channel. Index 0 is reserved (unused) so a zero-valued frame is never
// mistaken for a real channel.
var channelIndex = map[transport.ChannelID]uint8{
	transport.ChannelGeneral:     1,
	transport.ChannelKeyboard:    2,
	transport.ChannelMouse:       3,
	transport.ChannelTouch:       4,
	transport.ChannelControllers: 5,
	transport.ChannelStats:       6,
}

var indexChannel = func() map[uint8]transport.ChannelID {
	m := make(map[uint8]transport.ChannelID, len(channelIndex))
	for k, v := range channelIndex {
		m[v] = k
	}
	return m
}()

// Conn is the subset of *websocket.Conn this transport drives.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Transport multiplexes all logical channels over one reliable ordered
// WebSocket. Inbound media tracks are never available here (spec.md §4.3):
// the server must fall back to data-mode video/audio when this transport
// is selected.
type Transport struct {
	conn Conn
	log  zerolog.Logger

	writeMu  sync.Mutex
	mu       sync.Mutex
	channels map[transport.ChannelID]*channel
	onState  func(transport.RecoveryHint)
	started  bool
}

func New(conn Conn, log zerolog.Logger) *Transport {
	t := &Transport{
		conn:     conn,
		log:      log.With().Str("component", "wsock").Logger(),
		channels: make(map[transport.ChannelID]*channel),
	}
	for id := range channelIndex {
		t.channels[id] = &channel{id: id, t: t}
	}
	return t
}

func (t *Transport) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("wsock: transport already started")
	}
	t.started = true
	t.mu.Unlock()

	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.surface(transport.HintFatal)
			return
		}
		if err := t.dispatch(data); err != nil {
			t.log.Warn().Err(err).Msg("dropping malformed multiplexed frame")
		}
	}
}

func (t *Transport) dispatch(data []byte) error {
	if len(data) < 5 {
		return fmt.Errorf("wsock: frame too short")
	}
	idByte := data[0]
	length := binary.BigEndian.Uint32(data[1:5])
	if int(length) != len(data)-5 {
		return fmt.Errorf("wsock: length mismatch: header says %d, have %d", length, len(data)-5)
	}
	id, ok := indexChannel[idByte]
	if !ok {
		return fmt.Errorf("wsock: unknown channel index %d", idByte)
	}
	t.mu.Lock()
	ch := t.channels[id]
	t.mu.Unlock()
	ch.deliver(data[5:])
	return nil
}

func (t *Transport) surface(hint transport.RecoveryHint) {
	if t.onState != nil {
		t.onState(hint)
	}
}

func (t *Transport) send(id transport.ChannelID, frame []byte) error {
	idx, ok := channelIndex[id]
	if !ok {
		return fmt.Errorf("wsock: channel %s not multiplexable", id)
	}
	buf := make([]byte, 5+len(frame))
	buf[0] = idx
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(frame)))
	copy(buf[5:], frame)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, buf)
}

func (t *Transport) Channel(id transport.ChannelID) (transport.DataChannel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.channels[id]
	return ch, ok
}

func (t *Transport) OnTrack(func(transport.MediaTrack))          {} // no inbound tracks over this transport
func (t *Transport) OnStateChange(f func(transport.RecoveryHint)) { t.onState = f }

func (t *Transport) Close() error {
	return t.conn.Close()
}

// channel is a transport.DataChannel backed by the shared multiplexed
// WebSocket; it is always "open" once the transport has started, since the
// underlying connection is established synchronously by the caller.
type channel struct {
	id transport.ChannelID
	t  *Transport

	mu        sync.Mutex
	listeners []func([]byte)
}

func (c *channel) ID() transport.ChannelID { return c.id }

func (c *channel) Send(frame []byte) error {
	return c.t.send(c.id, frame)
}

func (c *channel) OnMessage(f func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, f)
}

func (c *channel) deliver(frame []byte) {
	c.mu.Lock()
	listeners := append([]func([]byte){}, c.listeners...)
	c.mu.Unlock()
	for _, l := range listeners {
		l(frame)
	}
}

func (c *channel) BufferedAmount() int { return 0 } // reliable WebSocket has no analogous backpressure signal

func (c *channel) Close() error { return nil } // channels share the transport's one socket; closed via Transport.Close
