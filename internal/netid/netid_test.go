package netid

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

var (
	counters = []net.IOCountersStat{
		{Name: "lo", BytesRecv: 1, BytesSent: 1},
		{Name: "docker0", BytesRecv: 5, BytesSent: 6},
		{Name: "wlp3s0", BytesRecv: 1000, BytesSent: 400},
		{Name: "enp5s0", BytesRecv: 9000, BytesSent: 8000},
	}
	ifaces = net.InterfaceStatList{
		{Name: "lo", Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "wlp3s0", Addrs: net.InterfaceAddrList{{Addr: "192.168.1.20/24"}, {Addr: "fe80::1c2d:3e4f:5a6b:7c8d/64"}}},
		{Name: "enp5s0"},
	}
)

func TestResolveFirstMatch(t *testing.T) {
	t.Parallel()
	r, err := NewResolver(`^(wl|en)`)
	require.NoError(t, err)

	m, ok := r.Resolve(counters, ifaces)
	require.True(t, ok)
	id := Identity(m, ok)
	assert.Equal(t, model.LinkConnected, id.State)
	assert.Equal(t, "wlp3s0", id.Interface)
	assert.Equal(t, uint64(1000), id.TotalReceived)
	assert.Equal(t, uint64(400), id.TotalTransmitted)
	require.Len(t, id.LocalAddrs, 2)
	assert.Equal(t, netip.MustParseAddr("192.168.1.20"), id.LocalAddrs[0])
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("192.168.1.20")}, id.IPv4())
}

func TestResolveDisconnected(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		pattern string
	}{
		{"no interface matches", `^tun`},
		{"matched interface has no address", `^enp`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewResolver(tc.pattern)
			require.NoError(t, err)
			m, ok := r.Resolve(counters, ifaces)
			assert.False(t, ok)

			id := Identity(m, ok)
			assert.Equal(t, model.LinkDisconnected, id.State)
			assert.Empty(t, id.LocalAddrs)
			assert.Empty(t, id.Interface)
			assert.Zero(t, id.TotalReceived)
			assert.False(t, id.PublicAddr.IsValid())
		})
	}
}

func TestNewResolverBadPattern(t *testing.T) {
	t.Parallel()
	_, err := NewResolver(`(`)
	assert.Error(t, err)
}

func TestAddrsOfBareAddress(t *testing.T) {
	t.Parallel()
	got := AddrsOf("eth0", net.InterfaceStatList{
		{Name: "eth0", Addrs: net.InterfaceAddrList{{Addr: "10.0.0.2"}, {Addr: "garbage"}}},
	})
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.2")}, got)
}

type fakeLookup struct {
	addrs []netip.Addr
	errs  []error
	calls int
}

func (f *fakeLookup) Lookup(context.Context) (netip.Addr, error) {
	i := f.calls
	f.calls++
	return f.addrs[i], f.errs[i]
}

func TestPublicIPKeepsPreviousOnFailure(t *testing.T) {
	t.Parallel()
	first := netip.MustParseAddr("2001:db8::7")
	lookup := &fakeLookup{
		addrs: []netip.Addr{first, {}},
		errs:  []error{nil, errors.New("timeout")},
	}
	p := NewPublicIP(lookup, nil)
	assert.False(t, p.Addr().IsValid())

	got, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = p.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, first, p.Addr())
}

func TestAddrFromTXT(t *testing.T) {
	t.Parallel()
	msg := new(dns.Msg)
	msg.Answer = []dns.RR{&dns.TXT{
		Hdr: dns.RR_Header{Name: myAddrName, Rrtype: dns.TypeTXT, Class: dns.ClassINET},
		Txt: []string{"203.0.113.9"},
	}}
	addr, ok := addrFromTXT(msg)
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("203.0.113.9"), addr)

	_, ok = addrFromTXT(new(dns.Msg))
	assert.False(t, ok)
}
