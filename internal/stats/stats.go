// Package stats implements spec.md §4.7: a 1-second local video receiver
// statistics poll merged with server-pushed Rtt/Video stats messages
// arriving on the "stats" channel.
package stats

import (
	"encoding/json"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// VideoReceiver is the local, decoder-side half of the merged snapshot
// (spec.md §4.7), read once a second from the WebRTC stats API.
type VideoReceiver struct {
	DecoderImplementation string
	FrameWidth, FrameHeight int
	FramesPerSecond         float64
	JitterBufferDelay       float64
	JitterBufferTargetDelay float64
	JitterBufferMinimumDelay float64
	TotalDecodeTime         float64
	TotalAssemblyTime       float64
	TotalProcessingDelay    float64
	PacketsReceived         uint32
	PacketsLost             int32
	FramesDropped           uint32
	KeyFramesDecoded        uint32
}

// Rtt is the server-pushed round-trip-time sample.
type Rtt struct {
	RTT         float64 `json:"rtt"`
	RTTVariance float64 `json:"rtt_variance"`
}

// VideoServer is the server-pushed encode/transit timing sample.
type VideoServer struct {
	HostProcessingMin     float64 `json:"host_processing_min"`
	HostProcessingMax     float64 `json:"host_processing_max"`
	HostProcessingAvg     float64 `json:"host_processing_avg"`
	StreamerProcessingMin float64 `json:"streamer_processing_min"`
	StreamerProcessingMax float64 `json:"streamer_processing_max"`
	StreamerProcessingAvg float64 `json:"streamer_processing_avg"`
}

// ServerPush is one JSON message arriving on the stats channel.
type ServerPush struct {
	Rtt   *Rtt         `json:"Rtt,omitempty"`
	Video *VideoServer `json:"Video,omitempty"`
}

// DecodeServerPush parses one stats-channel frame.
func DecodeServerPush(data []byte) (ServerPush, error) {
	var p ServerPush
	err := json.Unmarshal(data, &p)
	return p, err
}

// HostSenderReport is the host's RTCP Sender Report for the video track,
// read straight off the wire (internal/transport/rtc's OnRTCP callback)
// rather than through pion's aggregated GetStats() snapshot that backs
// VideoReceiver.
type HostSenderReport struct {
	NTPTime     uint64
	RTPTime     uint32
	PacketCount uint32
	OctetCount  uint32
}

// Snapshot is the merged view spec.md §4.7 describes.
type Snapshot struct {
	Local      VideoReceiver
	Rtt        *Rtt
	Server     *VideoServer
	HostSender *HostSenderReport
	UpdatedAt  time.Time
}

// Collector accumulates the latest local read and the latest server push,
// merging them on demand. It owns no goroutine of its own; callers drive
// CollectOnce on a 1s ticker (spec.md §4.7, §5 "single-threaded
// cooperative" scheduling model).
type Collector struct {
	latest Snapshot
}

func NewCollector() *Collector { return &Collector{} }

// CollectOnce reads the current inbound video stats off pc for the given
// SSRC and merges them into the snapshot.
func (c *Collector) CollectOnce(pc *webrtc.PeerConnection, ssrc webrtc.SSRC) {
	report := pc.GetStats()
	for _, stat := range report {
		inbound, ok := stat.(webrtc.InboundRTPStreamStats)
		if !ok || webrtc.SSRC(inbound.SSRC) != ssrc {
			continue
		}
		c.latest.Local = VideoReceiver{
			DecoderImplementation:    inbound.DecoderImplementation,
			FrameWidth:               int(inbound.FrameWidth),
			FrameHeight:              int(inbound.FrameHeight),
			FramesPerSecond:          inbound.FramesPerSecond,
			JitterBufferDelay:        inbound.JitterBufferDelay,
			JitterBufferTargetDelay:  inbound.JitterBufferTargetDelay,
			JitterBufferMinimumDelay: inbound.JitterBufferMinimumDelay,
			TotalDecodeTime:          inbound.TotalDecodeTime,
			TotalProcessingDelay:     inbound.TotalProcessingDelay,
			PacketsReceived:          uint32(inbound.PacketsReceived),
			PacketsLost:              inbound.PacketsLost,
			FramesDropped:            uint32(inbound.FramesDropped),
			KeyFramesDecoded:         uint32(inbound.KeyFramesDecoded),
		}
		break
	}
	c.latest.UpdatedAt = time.Now()
}

// ObserveRTCP folds the host's most recent RTCP Sender Report into the
// snapshot; other packet types (receiver reports, PLI, etc.) are ignored
// here since spec.md §4.7 only asks for the host-processing timing they
// carry, not full RTCP-level flow control.
func (c *Collector) ObserveRTCP(pkts []rtcp.Packet) {
	for _, pkt := range pkts {
		sr, ok := pkt.(*rtcp.SenderReport)
		if !ok {
			continue
		}
		c.latest.HostSender = &HostSenderReport{
			NTPTime:     sr.NTPTime,
			RTPTime:     sr.RTPTime,
			PacketCount: sr.PacketCount,
			OctetCount:  sr.OctetCount,
		}
	}
}

// MergeServerPush folds one server-pushed stats message into the snapshot.
func (c *Collector) MergeServerPush(p ServerPush) {
	if p.Rtt != nil {
		c.latest.Rtt = p.Rtt
	}
	if p.Video != nil {
		c.latest.Server = p.Video
	}
}

// Latest returns the current merged snapshot.
func (c *Collector) Latest() Snapshot { return c.latest }
