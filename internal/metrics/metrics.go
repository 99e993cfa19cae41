// Package metrics exports engine snapshots and tick timings to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dicklesworthstone/vitals/internal/engine"
	"github.com/Dicklesworthstone/vitals/internal/model"
)

const namespace = "vitals"

var (
	cpuUsage      = desc("cpu_usage_ratio", "Total CPU busy ratio.")
	cpuCoreUsage  = desc("cpu_core_usage_ratio", "Per-core CPU busy ratio.", "core")
	cpuTemp       = desc("cpu_temperature_celsius", "CPU sensor temperature.")
	load1         = desc("load1", "One-minute load average.")
	memUsed       = desc("memory_used_bytes", "Used RAM.")
	memTotal      = desc("memory_total_bytes", "Total RAM.")
	swapUsed      = desc("swap_used_bytes", "Used swap.")
	diskAvail     = desc("disk_available_bytes", "Available space on the watched mount.", "mount")
	diskTotal     = desc("disk_total_bytes", "Size of the watched mount.", "mount")
	gpuUtil       = desc("gpu_utilization_ratio", "GPU utilization ratio.", "index", "name")
	gpuTemp       = desc("gpu_temperature_celsius", "GPU temperature.", "index", "name")
	netUp         = desc("network_connected", "1 when the watched interface has an address.")
	netRecvRate   = desc("network_receive_bytes_per_second", "Download rate of the watched interface.", "interface")
	netSendRate   = desc("network_transmit_bytes_per_second", "Upload rate of the watched interface.", "interface")
	procTotal     = desc("processes", "Live processes.")
	procRunning   = desc("processes_running", "Processes in the running state.")
	weatherOK     = desc("weather_ok", "1 when the last weather poll produced data.")
	domainSampled = desc("domain_sampled", "1 once a domain published its first value.", "domain")
	domainFailing = desc("domain_error", "1 while a domain's last tick failed.", "domain")
)

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

// Collector reads a fresh snapshot on every scrape.
type Collector struct {
	snapshot func() engine.Snapshot
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wraps a snapshot source such as (*engine.Driver).Snapshot.
func NewCollector(snapshot func() engine.Snapshot) *Collector {
	return &Collector{snapshot: snapshot}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		cpuUsage, cpuCoreUsage, cpuTemp, load1, memUsed, memTotal, swapUsed,
		diskAvail, diskTotal, gpuUtil, gpuTemp, netUp, netRecvRate, netSendRate,
		procTotal, procRunning, weatherOK, domainSampled, domainFailing,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	domain := func(name string, sampled bool, err string) {
		gauge(domainSampled, boolValue(sampled), name)
		gauge(domainFailing, boolValue(err != ""), name)
	}

	domain("cpu", s.CPU.Sampled, s.CPU.Err)
	if s.CPU.Sampled {
		cpu := s.CPU.Value
		gauge(cpuUsage, cpu.Total/100)
		for i, v := range cpu.PerCore {
			gauge(cpuCoreUsage, v/100, strconv.Itoa(i))
		}
		if cpu.HasTemperature {
			gauge(cpuTemp, cpu.TemperatureC)
		}
		gauge(load1, cpu.Load1)
	}

	domain("memory", s.Memory.Sampled, s.Memory.Err)
	if s.Memory.Sampled {
		gauge(memUsed, float64(s.Memory.Value.UsedBytes))
		gauge(memTotal, float64(s.Memory.Value.TotalBytes))
		gauge(swapUsed, float64(s.Memory.Value.SwapUsed))
	}

	domain("disk", s.Disk.Sampled, s.Disk.Err)
	if s.Disk.Sampled {
		gauge(diskAvail, float64(s.Disk.Value.AvailableBytes), s.Disk.Value.MountPoint)
		gauge(diskTotal, float64(s.Disk.Value.TotalBytes), s.Disk.Value.MountPoint)
	}

	domain("gpu", s.GPU.Sampled, s.GPU.Err)
	for i, g := range s.GPU.Value.Devices {
		gauge(gpuUtil, g.Util/100, strconv.Itoa(i), g.Name)
		gauge(gpuTemp, g.TempC, strconv.Itoa(i), g.Name)
	}

	domain("processes", s.Processes.Sampled, s.Processes.Err)
	if s.Processes.Sampled {
		gauge(procTotal, float64(s.Processes.Value.Total))
		gauge(procRunning, float64(s.Processes.Value.Running))
	}

	domain("network", s.Network.Sampled, s.Network.Err)
	if s.Network.Sampled {
		n := s.Network.Value
		gauge(netUp, boolValue(n.State == model.LinkConnected))
		if n.State == model.LinkConnected {
			gauge(netRecvRate, n.DownloadRate, n.Interface)
			gauge(netSendRate, n.UploadRate, n.Interface)
		}
	}

	domain("weather", s.Weather.Sampled, s.Weather.Err)
	if s.Weather.Sampled {
		gauge(weatherOK, boolValue(s.Weather.OK()))
	}
}

// Ticks counts and times engine ticks per task. It implements
// engine.Observer.
type Ticks struct {
	counter *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var _ engine.Observer = (*Ticks)(nil)

func NewTicks() *Ticks {
	return &Ticks{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Engine ticks by task and outcome.",
		}, []string{"task", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent sampling one tick.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"task"}),
	}
}

func (t *Ticks) ObserveTick(task string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.counter.WithLabelValues(task, outcome).Inc()
	t.latency.WithLabelValues(task).Observe(took.Seconds())
}

func (t *Ticks) Describe(ch chan<- *prometheus.Desc) {
	t.counter.Describe(ch)
	t.latency.Describe(ch)
}

func (t *Ticks) Collect(ch chan<- prometheus.Metric) {
	t.counter.Collect(ch)
	t.latency.Collect(ch)
}

// Handler serves the given collectors plus the Go runtime collectors.
func Handler(cs ...prometheus.Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
