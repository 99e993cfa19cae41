package sampler

import (
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/netid"
)

type fakeNet struct {
	counters []net.IOCountersStat
	ifaces   net.InterfaceStatList
}

func (f *fakeNet) NetIOCounters() ([]net.IOCountersStat, error)  { return f.counters, nil }
func (f *fakeNet) NetInterfaces() (net.InterfaceStatList, error) { return f.ifaces, nil }

func (f *fakeNet) set(recv, sent uint64) {
	f.counters = []net.IOCountersStat{
		{Name: "lo", BytesRecv: 1, BytesSent: 1},
		{Name: "eth0", BytesRecv: recv, BytesSent: sent},
	}
}

func newNetwork(t *testing.T) (*Network, *fakeNet) {
	t.Helper()
	r, err := netid.NewResolver(`^(eth|wlan)\d+$`)
	require.NoError(t, err)
	src := &fakeNet{ifaces: net.InterfaceStatList{
		{Name: "eth0", Addrs: net.InterfaceAddrList{{Addr: "192.168.1.20/24"}, {Addr: "fe80::1/64"}}},
	}}
	return NewNetwork(src, r, 1000, 500, 4, nil), src
}

func TestNetworkRates(t *testing.T) {
	t.Parallel()
	n, src := newNetwork(t)

	src.set(10_000, 5_000)
	first, err := n.Sample(t0)
	require.NoError(t, err)
	assert.Equal(t, model.LinkConnected, first.State)
	assert.Zero(t, first.DownloadRate, "no previous counters yet")

	src.set(10_500, 5_100)
	got, err := n.Sample(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "eth0", got.Interface)
	assert.InDelta(t, 500, got.DownloadRate, 1e-9)
	assert.InDelta(t, 100, got.UploadRate, 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, 0}, got.DownloadHistory, 1e-9)
	assert.InDeltaSlice(t, []float64{0.2, 0}, got.UploadHistory, 1e-9)
	assert.Len(t, got.IPv4(), 1)
}

func TestNetworkZeroElapsedAndReset(t *testing.T) {
	t.Parallel()
	n, src := newNetwork(t)

	src.set(10_000, 5_000)
	_, err := n.Sample(t0)
	require.NoError(t, err)

	src.set(20_000, 6_000)
	got, err := n.Sample(t0)
	require.NoError(t, err)
	assert.Zero(t, got.DownloadRate)
	assert.Zero(t, got.UploadRate)

	src.set(100, 100)
	got, err = n.Sample(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, got.DownloadRate, "counter went backwards")
	assert.Zero(t, got.UploadRate)
}

func TestNetworkDisconnected(t *testing.T) {
	t.Parallel()
	n, src := newNetwork(t)

	src.set(10_000, 5_000)
	_, err := n.Sample(t0)
	require.NoError(t, err)

	src.counters = []net.IOCountersStat{{Name: "lo"}}
	got, err := n.Sample(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, model.LinkDisconnected, got.State)
	assert.Empty(t, got.Interface)
	assert.Zero(t, got.TotalReceived)

	src.set(90_000, 90_000)
	got, err = n.Sample(t0.Add(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, model.LinkConnected, got.State)
	assert.Zero(t, got.DownloadRate, "reconnect does not report the gap as a burst")
}

func TestNetworkMatchWithoutAddress(t *testing.T) {
	t.Parallel()
	n, src := newNetwork(t)
	src.ifaces = net.InterfaceStatList{{Name: "eth0"}}
	src.set(1, 1)
	got, err := n.Sample(t0)
	require.NoError(t, err)
	assert.Equal(t, model.LinkDisconnected, got.State)
}
