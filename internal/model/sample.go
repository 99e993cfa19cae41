package model

import (
	"net/netip"
	"time"
)

// CPU aggregates one CPU tick plus the static facts resolved at startup.
type CPU struct {
	At             time.Time
	Model          string
	Cores          int
	Total          float64   // percent 0-100
	PerCore        []float64 // per-core percent
	FrequencyGHz   float64
	TemperatureC   float64
	HasTemperature bool
	Load1          float64
	Load5          float64
	Load15         float64
	Uptime         time.Duration
	History        []float64 // Total/100, most recent first
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	At          time.Time
	UsedBytes   uint64
	TotalBytes  uint64
	SwapUsed    uint64
	SwapTotal   uint64
	Frequency   string // e.g. "3200 MHz", empty when unknown
	History     []float64
	SwapHistory []float64
}

// Percent is used/total RAM as 0-100.
func (m Memory) Percent() float64 { return Ratio(m.UsedBytes, m.TotalBytes) * 100 }

// SwapPercent is used/total swap as 0-100.
func (m Memory) SwapPercent() float64 { return Ratio(m.SwapUsed, m.SwapTotal) * 100 }

// Disk describes one configured mount point.
type Disk struct {
	At             time.Time
	Name           string // "<name> (<fstype>)"
	Model          string
	MountPoint     string
	TotalBytes     uint64
	AvailableBytes uint64
	TemperatureC   float64
	HasTemperature bool
}

// UsedRatio is (total-available)/total in [0,1].
func (d Disk) UsedRatio() float64 {
	if d.AvailableBytes > d.TotalBytes {
		return 0
	}
	return Ratio(d.TotalBytes-d.AvailableBytes, d.TotalBytes)
}

// GPU holds a single device snapshot.
type GPU struct {
	Name        string
	Util        float64 // percent
	TempC       float64
	GraphicsMHz float64
	MemoryMHz   float64
	MemUsedMB   float64
	MemTotalMB  float64
}

// GPUs is one GPU tick; History tracks the first device's utilization ratio.
type GPUs struct {
	At      time.Time
	Devices []GPU
	History []float64
}

// Process is a lightweight top entry.
type Process struct {
	PID         int32
	Command     string
	CPU         float64 // percent of one core
	MemoryBytes uint64
}

// RankedSet is the top-K view of one process tick, ordered descending per key.
type RankedSet struct {
	ByCPU    []Process
	ByMemory []Process
}

// Processes is one process-list tick.
type Processes struct {
	At      time.Time
	Ranked  RankedSet
	Total   int
	Running int
}

// LinkState distinguishes "never sampled" from "no usable interface".
type LinkState int

const (
	LinkUnsampled LinkState = iota
	LinkDisconnected
	LinkConnected
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnected:
		return "connected"
	default:
		return "unsampled"
	}
}

// Network is the resolved identity and throughput of the matched interface.
// Every field except State is zero unless State is LinkConnected.
type Network struct {
	At               time.Time
	State            LinkState
	Interface        string
	LocalAddrs       []netip.Addr
	PublicAddr       netip.Addr // invalid when unknown
	TotalReceived    uint64
	TotalTransmitted uint64
	DownloadRate     float64 // bytes/s
	UploadRate       float64 // bytes/s
	DownloadHistory  []float64
	UploadHistory    []float64
}

// IPv4 returns only the IPv4 local addresses.
func (n Network) IPv4() []netip.Addr {
	var out []netip.Addr
	for _, a := range n.LocalAddrs {
		if a.Is4() {
			out = append(out, a)
		}
	}
	return out
}

// Host is static machine information, read once.
type Host struct {
	User          string
	Hostname      string
	OS            string
	Platform      string
	KernelVersion string
	Arch          string
}

// Ratio returns used/total, or 0 when total is 0.
func Ratio(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}
