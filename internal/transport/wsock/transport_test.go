package wsock

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/transport"
)

type fakeConn struct {
	mu      sync.Mutex
	inbound [][]byte
	idx     int
	sent    [][]byte
	closed  bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte{}, data...)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	if f.idx >= len(f.inbound) {
		f.mu.Unlock()
		<-make(chan struct{}) // block forever instead of erroring the read loop mid-test
	}
	defer f.mu.Unlock()
	b := f.inbound[f.idx]
	f.idx++
	return 2, b, nil
}

func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestSendFramesChannelAndLength(t *testing.T) {
	conn := &fakeConn{}
	tr := New(conn, zerolog.Nop())
	require.NoError(t, tr.Start())

	ch, ok := tr.Channel(transport.ChannelMouse)
	require.True(t, ok)
	require.NoError(t, ch.Send([]byte{1, 2, 3}))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.sent, 1)
	frame := conn.sent[0]
	require.Equal(t, channelIndex[transport.ChannelMouse], frame[0])
	require.Equal(t, []byte{0, 0, 0, 3}, frame[1:5])
	require.Equal(t, []byte{1, 2, 3}, frame[5:])
}

func TestDispatchRoutesToListener(t *testing.T) {
	buf := []byte{channelIndex[transport.ChannelKeyboard], 0, 0, 0, 2, 0xAA, 0xBB}
	conn := &fakeConn{inbound: [][]byte{buf}}
	tr := New(conn, zerolog.Nop())

	received := make(chan []byte, 1)
	ch, _ := tr.Channel(transport.ChannelKeyboard)
	ch.OnMessage(func(f []byte) { received <- f })

	require.NoError(t, tr.Start())
	got := <-received
	require.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestDispatchRejectsLengthMismatch(t *testing.T) {
	conn := &fakeConn{}
	tr := New(conn, zerolog.Nop())
	err := tr.dispatch([]byte{channelIndex[transport.ChannelMouse], 0, 0, 0, 99, 1})
	require.Error(t, err)
}
