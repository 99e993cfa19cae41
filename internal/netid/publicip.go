package netid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Google's authoritative servers answer this TXT name with the querying
// client's address.
const (
	myAddrName = "o-o.myaddr.l.google.com."

	DefaultLookupTimeout = 3 * time.Second
)

// DefaultServers prefers IPv6 and falls back to IPv4.
var DefaultServers = []string{
	"[2001:4860:4802:32::a]:53", // ns1.google.com
	"216.239.32.10:53",
}

// Lookup resolves the public address once.
type Lookup interface {
	Lookup(ctx context.Context) (netip.Addr, error)
}

// DNSLookup asks a "what is my IP" DNS service, trying servers in order.
type DNSLookup struct {
	Servers []string
	Timeout time.Duration
}

// NewDNSLookup returns a lookup against DefaultServers.
func NewDNSLookup() *DNSLookup {
	return &DNSLookup{Servers: DefaultServers, Timeout: DefaultLookupTimeout}
}

func (l *DNSLookup) Lookup(ctx context.Context) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(myAddrName, dns.TypeTXT)
	client := &dns.Client{Timeout: l.Timeout}

	var errs []error
	for _, server := range l.Servers {
		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}
		if addr, ok := addrFromTXT(resp); ok {
			return addr, nil
		}
		errs = append(errs, fmt.Errorf("%s: no address in answer", server))
	}
	if len(errs) == 0 {
		return netip.Addr{}, errors.New("netid: no lookup servers configured")
	}
	return netip.Addr{}, fmt.Errorf("netid: public address lookup: %w", errors.Join(errs...))
}

func addrFromTXT(resp *dns.Msg) (netip.Addr, bool) {
	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		for _, s := range txt.Txt {
			if a, err := netip.ParseAddr(strings.TrimSpace(s)); err == nil {
				return a, true
			}
		}
	}
	return netip.Addr{}, false
}

// PublicIP remembers the last resolved public address. A failed refresh
// keeps the previous value so it stays displayed.
type PublicIP struct {
	lookup Lookup
	logger *slog.Logger

	mu   sync.RWMutex
	addr netip.Addr
}

// NewPublicIP wraps lookup. If logger is nil, a no-op logger is used.
func NewPublicIP(lookup Lookup, logger *slog.Logger) *PublicIP {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PublicIP{lookup: lookup, logger: logger}
}

// Refresh performs one lookup and returns the address now held.
func (p *PublicIP) Refresh(ctx context.Context) (netip.Addr, error) {
	addr, err := p.lookup.Lookup(ctx)
	if err != nil {
		p.logger.Warn("public address lookup failed, keeping previous", "error", err)
		return p.Addr(), err
	}
	p.mu.Lock()
	p.addr = addr
	p.mu.Unlock()
	p.logger.Debug("public address resolved", "addr", addr)
	return addr, nil
}

// Addr returns the last resolved address; invalid when none resolved yet.
func (p *PublicIP) Addr() netip.Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.addr
}
