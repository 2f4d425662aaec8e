package stats

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerPushRtt(t *testing.T) {
	p, err := DecodeServerPush([]byte(`{"Rtt":{"rtt":42.5,"rtt_variance":1.2}}`))
	require.NoError(t, err)
	require.NotNil(t, p.Rtt)
	require.Equal(t, 42.5, p.Rtt.RTT)
	require.Nil(t, p.Video)
}

func TestMergeServerPushKeepsPriorFieldOnPartialUpdate(t *testing.T) {
	c := NewCollector()
	c.MergeServerPush(ServerPush{Rtt: &Rtt{RTT: 10}})
	c.MergeServerPush(ServerPush{Video: &VideoServer{HostProcessingAvg: 3}})

	snap := c.Latest()
	require.NotNil(t, snap.Rtt, "an earlier Rtt push must survive a Video-only push")
	require.Equal(t, 10.0, snap.Rtt.RTT)
	require.NotNil(t, snap.Server)
	require.Equal(t, 3.0, snap.Server.HostProcessingAvg)
}

func TestObserveRTCPMergesSenderReportAndIgnoresOtherPackets(t *testing.T) {
	c := NewCollector()
	c.ObserveRTCP([]rtcp.Packet{
		&rtcp.ReceiverReport{},
		&rtcp.SenderReport{NTPTime: 123, RTPTime: 456, PacketCount: 7, OctetCount: 890},
	})

	snap := c.Latest()
	require.NotNil(t, snap.HostSender)
	require.EqualValues(t, 123, snap.HostSender.NTPTime)
	require.EqualValues(t, 456, snap.HostSender.RTPTime)
	require.EqualValues(t, 7, snap.HostSender.PacketCount)
	require.EqualValues(t, 890, snap.HostSender.OctetCount)
}
