package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/apierr"
	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/signaling"
	"github.com/n0remac/streamclient/internal/transport"
)

// fakeConn replays a fixed inbound sequence and records every outbound
// frame, standing in for *websocket.Conn in the state-machine tests.
type fakeConn struct {
	mu      sync.Mutex
	inbound [][]byte
	idx     int
	sent    []string
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.inbound) {
		return 0, nil, errors.New("eof")
	}
	b := f.inbound[f.idx]
	f.idx++
	return 1, b, nil
}

func (f *fakeConn) Close() error { return nil }

type fakeTransport struct {
	started bool
	signals []signaling.WebRTCSignal
}

func (t *fakeTransport) Start() error                          { t.started = true; return nil }
func (t *fakeTransport) Channel(transport.ChannelID) (transport.DataChannel, bool) { return nil, false }
func (t *fakeTransport) OnTrack(func(transport.MediaTrack))     {}
func (t *fakeTransport) OnStateChange(func(transport.RecoveryHint)) {}
func (t *fakeTransport) Close() error                           { return nil }
func (t *fakeTransport) ReceiveSignal(sig signaling.WebRTCSignal) {
	t.signals = append(t.signals, sig)
}

func TestSetupThenConnectionComplete(t *testing.T) {
	setup := `{"Setup":{"ice_servers":[{"urls":["stun:x"]}]}}`
	offer := `{"WebRtc":{"Description":{"type":"offer","sdp":"v=0..."}}}`
	complete := `{"ConnectionComplete":{"format":4,"width":1280,"height":720,"fps":60,"audio_channels":2,"audio_sample_rate":48000,"capabilities":{"touch":false}}}`

	conn := &fakeConn{inbound: [][]byte{[]byte(setup), []byte(offer), []byte(complete)}}

	var gotComplete signaling.ConnectionComplete
	var tr *fakeTransport
	factory := func(kind signaling.TransportKind, ice []signaling.IceServer) (transport.Transport, error) {
		require.Equal(t, signaling.TransportWebRTC, kind)
		require.Len(t, ice, 1)
		tr = &fakeTransport{}
		return tr, nil
	}

	obs := Observer{
		OnConnectionComplete: func(cc signaling.ConnectionComplete, _ transport.Transport) {
			gotComplete = cc
		},
	}

	probe := codec.Detect(codec.Probe{H264Decoder: true})
	s := New(conn, Params{HostID: "h1", AppID: "a1"}, probe, factory, obs, zerolog.Nop())

	err := s.Start()
	require.Error(t, err) // fakeConn runs dry and returns EOF

	require.True(t, tr.started)
	require.Len(t, tr.signals, 1)
	require.True(t, s.Streaming())
	require.Equal(t, 1280, gotComplete.Width)

	require.NotEmpty(t, conn.sent)
	var init map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(conn.sent[0]), &init))
	require.Contains(t, init, "Init")

	var setTransport map[string]string
	require.NoError(t, json.Unmarshal([]byte(conn.sent[1]), &setTransport))
	require.Equal(t, "WebRTC", setTransport["SetTransport"])
}

func TestTransportFactoryErrorSurfacesFatal(t *testing.T) {
	// Covers scenario 6's pipeline half is exercised in pipeline package;
	// here we confirm a transport factory error surfaces as Fatal.
	conn := &fakeConn{inbound: [][]byte{[]byte(`{"Setup":{"ice_servers":[]}}`)}}
	factory := func(signaling.TransportKind, []signaling.IceServer) (transport.Transport, error) {
		return nil, errors.New("no supported video renderer found")
	}
	var fatalCalled bool
	s := New(conn, Params{}, codec.NewMask(codec.Unsupported), factory, Observer{
		OnFatal: func(e *apierr.Error) {
			fatalCalled = true
			require.Contains(t, e.Error(), "no supported video renderer found")
		},
	}, zerolog.Nop())
	_ = s.Start()
	require.True(t, fatalCalled)
	require.Equal(t, Fatal, s.State())
}
