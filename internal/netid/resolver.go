// Package netid matches the configured interface against the live interface
// tables and resolves the host's public address.
package netid

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

// Resolver correlates the byte-counter table with the address table by name.
type Resolver struct {
	pattern *regexp.Regexp
}

// NewResolver compiles the interface-name pattern.
func NewResolver(pattern string) (*Resolver, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("netid: compile interface pattern %q: %w", pattern, err)
	}
	return &Resolver{pattern: re}, nil
}

// Pattern returns the source of the interface pattern.
func (r *Resolver) Pattern() string { return r.pattern.String() }

// Match is the counters of the matched interface together with its addresses.
type Match struct {
	Counters net.IOCountersStat
	Addrs    []netip.Addr
}

// Resolve picks the first counter entry whose name matches and collects the
// addresses bound to that name. ok is false for the disconnected state: no
// interface matched, or the match has no bound address.
func (r *Resolver) Resolve(counters []net.IOCountersStat, ifaces net.InterfaceStatList) (Match, bool) {
	for _, c := range counters {
		if !r.pattern.MatchString(c.Name) {
			continue
		}
		addrs := AddrsOf(c.Name, ifaces)
		if len(addrs) == 0 {
			return Match{}, false
		}
		return Match{Counters: c, Addrs: addrs}, true
	}
	return Match{}, false
}

// Identity turns a resolution into the network value exposed to consumers,
// leaving rates and histories for the caller.
func Identity(m Match, ok bool) model.Network {
	if !ok {
		return model.Network{State: model.LinkDisconnected}
	}
	return model.Network{
		State:            model.LinkConnected,
		Interface:        m.Counters.Name,
		LocalAddrs:       m.Addrs,
		TotalReceived:    m.Counters.BytesRecv,
		TotalTransmitted: m.Counters.BytesSent,
	}
}

// AddrsOf parses the addresses bound to the interface called name. Entries
// are CIDR strings; unparsable ones are skipped.
func AddrsOf(name string, ifaces net.InterfaceStatList) []netip.Addr {
	var out []netip.Addr
	for _, iface := range ifaces {
		if iface.Name != name {
			continue
		}
		for _, a := range iface.Addrs {
			if addr, ok := parseAddr(a.Addr); ok {
				out = append(out, addr)
			}
		}
	}
	return out
}

func parseAddr(s string) (netip.Addr, bool) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Addr(), true
	}
	// some platforms report a bare address, possibly with a zone
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	a, err := netip.ParseAddr(s)
	return a, err == nil
}
