package sampler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/netid"
	"github.com/Dicklesworthstone/vitals/internal/ring"
)

// NetworkSource exposes the two independent OS facilities the resolver
// correlates: per-interface byte counters and bound addresses.
type NetworkSource interface {
	NetIOCounters() ([]net.IOCountersStat, error)
	NetInterfaces() (net.InterfaceStatList, error)
}

// Network derives transfer rates from cumulative counters of the matched
// interface. The previous counters are kept here, not recomputed from history.
type Network struct {
	src      NetworkSource
	resolver *netid.Resolver
	logger   *slog.Logger
	downMax  float64
	upMax    float64

	havePrev bool
	prevName string
	prevRecv uint64
	prevSent uint64
	prevAt   time.Time

	down *ring.Buffer[float64]
	up   *ring.Buffer[float64]
}

// NewNetwork builds a sampler. downMax and upMax are the bytes/s plotted as a
// full graph; zero disables that history's scale and plots 0.
func NewNetwork(src NetworkSource, resolver *netid.Resolver, downMax, upMax float64, historyCap int, logger *slog.Logger) *Network {
	return &Network{
		src:      src,
		resolver: resolver,
		logger:   discardLogger(logger),
		downMax:  downMax,
		upMax:    upMax,
		down:     ring.New[float64](historyCap),
		up:       ring.New[float64](historyCap),
	}
}

// Sample reads one network tick. A missing or address-less interface yields
// the disconnected state and forgets the previous counters, so a reconnect
// does not report the whole gap as one burst.
func (n *Network) Sample(now time.Time) (model.Network, error) {
	counters, err := n.src.NetIOCounters()
	if err != nil {
		return model.Network{}, fmt.Errorf("sampler: net counters: %w", err)
	}
	ifaces, err := n.src.NetInterfaces()
	if err != nil {
		return model.Network{}, fmt.Errorf("sampler: net interfaces: %w", err)
	}

	m, ok := n.resolver.Resolve(counters, ifaces)
	out := netid.Identity(m, ok)
	out.At = now
	if !ok {
		if n.havePrev {
			n.logger.Info("network disconnected", "pattern", n.resolver.Pattern())
		}
		n.havePrev = false
		return out, nil
	}

	if n.havePrev && n.prevName == out.Interface {
		elapsed := now.Sub(n.prevAt).Seconds()
		out.DownloadRate = rate(out.TotalReceived, n.prevRecv, elapsed)
		out.UploadRate = rate(out.TotalTransmitted, n.prevSent, elapsed)
	}
	n.havePrev = true
	n.prevName = out.Interface
	n.prevRecv, n.prevSent = out.TotalReceived, out.TotalTransmitted
	n.prevAt = now

	pushRatio(n.down, scale(out.DownloadRate, n.downMax))
	pushRatio(n.up, scale(out.UploadRate, n.upMax))
	out.DownloadHistory = n.down.Values()
	out.UploadHistory = n.up.Values()
	return out, nil
}

// rate is (cur-prev)/elapsed, or 0 when elapsed is not positive or the
// counter went backwards (reset or wrap).
func rate(cur, prev uint64, elapsed float64) float64 {
	if elapsed <= 0 || cur < prev {
		return 0
	}
	return float64(cur-prev) / elapsed
}

func scale(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
