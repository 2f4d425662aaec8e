package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/n0remac/streamclient/internal/transport"
)

// dataChannel wraps a pion DataChannel to match spec.md §4.2's "Data
// channel wrapper": frames sent immediately when open, otherwise buffered
// in an unbounded FIFO and drained on open; inbound frames fan out to
// registered listeners.
type dataChannel struct {
	id transport.ChannelID
	dc *webrtc.DataChannel

	mu        sync.Mutex
	open      bool
	queue     [][]byte
	listeners []func([]byte)
}

func wrapDataChannel(id transport.ChannelID, dc *webrtc.DataChannel) *dataChannel {
	w := &dataChannel{id: id, dc: dc}

	dc.OnOpen(func() {
		w.mu.Lock()
		w.open = true
		pending := w.queue
		w.queue = nil
		w.mu.Unlock()
		for _, f := range pending {
			_ = dc.Send(f)
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		w.mu.Lock()
		listeners := append([]func([]byte){}, w.listeners...)
		w.mu.Unlock()
		for _, l := range listeners {
			l(msg.Data)
		}
	})

	return w
}

func (w *dataChannel) ID() transport.ChannelID { return w.id }

func (w *dataChannel) Send(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		buf := make([]byte, len(frame))
		copy(buf, frame)
		w.queue = append(w.queue, buf)
		return nil
	}
	return w.dc.Send(frame)
}

func (w *dataChannel) OnMessage(f func([]byte)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, f)
}

func (w *dataChannel) BufferedAmount() int {
	return int(w.dc.BufferedAmount())
}

func (w *dataChannel) Close() error {
	return w.dc.Close()
}
