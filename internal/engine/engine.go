// Package engine drives one polling task per telemetry domain and publishes
// the latest value of each as an immutable snapshot.
//
// Each task owns its sampler and history exclusively. A task samples, stores
// the result, then arms its timer, so ticks of one domain never overlap.
// Consumers only ever see copies through Snapshot.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/vitals/internal/cache"
	"github.com/Dicklesworthstone/vitals/internal/config"
	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/netid"
	"github.com/Dicklesworthstone/vitals/internal/sampler"
	"github.com/Dicklesworthstone/vitals/internal/weather"
)

// WeatherFetcher requests current conditions; *weather.Client implements it.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (weather.Data, error)
}

// Sources are the providers behind every domain. A nil GPU, PublicIP or
// Weather disables that domain.
type Sources struct {
	CPU       sampler.CPUSource
	Memory    sampler.MemorySource
	Disk      sampler.DiskSource
	GPU       sampler.GPUSource
	Network   sampler.NetworkSource
	Processes sampler.ProcessSource
	Host      sampler.HostSource
	PublicIP  netid.Lookup
	Weather   WeatherFetcher
}

// SystemSources reads the local machine. The weather client is only built
// when weather is enabled.
func SystemSources(cfg config.Config) Sources {
	sys := sampler.NewSystem()
	src := Sources{
		CPU:       sys,
		Memory:    sys,
		Disk:      sys,
		GPU:       sys,
		Network:   sys,
		Processes: sys.Processes(),
		Host:      sys,
		PublicIP:  netid.NewDNSLookup(),
	}
	if cfg.Weather.Enabled {
		src.Weather = weather.NewClient(cfg.Weather.CityID, cfg.Weather.APIKey, cfg.Weather.Units)
	}
	return src
}

// Observer is told about every finished tick.
type Observer interface {
	ObserveTick(task string, took time.Duration, err error)
}

type task struct {
	name string
	// tick runs one sample and returns the delay before the next one.
	tick func(ctx context.Context) (time.Duration, error)
}

// Driver is the schedule driver.
type Driver struct {
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	host     model.Host
	tasks    []task

	cpu       atomic.Pointer[Reading[model.CPU]]
	memory    atomic.Pointer[Reading[model.Memory]]
	disk      atomic.Pointer[Reading[model.Disk]]
	gpu       atomic.Pointer[Reading[model.GPUs]]
	processes atomic.Pointer[Reading[model.Processes]]
	network   atomic.Pointer[Reading[model.Network]]
	weather   atomic.Pointer[weather.Status]

	publicIP *netid.PublicIP
}

// Option customizes a Driver.
type Option func(*Driver)

// WithObserver reports tick timings, e.g. to the metrics exporter.
func WithObserver(o Observer) Option { return func(d *Driver) { d.observer = o } }

// WithClock replaces time.Now as the sample timestamp.
func WithClock(now func() time.Time) Option { return func(d *Driver) { d.now = now } }

// New builds every enabled domain. Startup failures that leave a required
// domain without data (no CPU, no memory total, missing mount point, a
// configured sensor that does not exist, a bad interface pattern) are
// returned; a missing GPU tool only disables GPU sampling.
func New(cfg config.Config, src Sources, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Driver{logger: logger, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	width := cfg.HistoryWidth

	if host, err := sampler.ReadHost(src.Host); err != nil {
		logger.Warn("machine info unavailable", "error", err)
	} else {
		d.host = host
	}

	cpu, err := sampler.NewCPU(src.CPU, cfg.CPU.SensorLabel, width, logger.With("domain", "cpu"))
	if err != nil {
		return nil, err
	}
	d.add("cpu", func(context.Context) (time.Duration, error) {
		d.cpu.Store(&Reading[model.CPU]{Sampled: true, Value: cpu.Sample(d.now())})
		return cfg.CPU.Interval, nil
	})

	mem, err := sampler.NewMemory(src.Memory, cfg.Memory.FrequencyFile, width, logger.With("domain", "memory"))
	if err != nil {
		return nil, err
	}
	d.add("memory", func(context.Context) (time.Duration, error) {
		v, err := mem.Sample(d.now())
		publish(&d.memory, v, err)
		return cfg.Memory.Interval, err
	})

	dsk, err := sampler.NewDisk(src.Disk, cfg.Disk.Name, cfg.Disk.MountPoint, cfg.Disk.DevicePath, logger.With("domain", "disk"))
	if err != nil {
		return nil, err
	}
	d.add("disk", func(context.Context) (time.Duration, error) {
		v, err := dsk.Sample(d.now())
		publish(&d.disk, v, err)
		return cfg.Disk.Interval, err
	})

	if cfg.GPU.Enabled && src.GPU != nil {
		gpu, err := sampler.NewGPU(src.GPU, width, logger.With("domain", "gpu"))
		switch {
		case errors.Is(err, sampler.ErrGPUUnavailable):
			logger.Info("GPU sampling disabled", "reason", err)
		case err != nil:
			return nil, err
		default:
			d.add("gpu", func(context.Context) (time.Duration, error) {
				v, err := gpu.Sample(d.now())
				publish(&d.gpu, v, err)
				return cfg.GPU.Interval, err
			})
		}
	}

	procs := sampler.NewProcesses(src.Processes, cfg.Processes.TopK, logger.With("domain", "processes"))
	d.add("processes", func(context.Context) (time.Duration, error) {
		v, err := procs.Sample(d.now())
		publish(&d.processes, v, err)
		return cfg.Processes.Interval, err
	})

	resolver, err := netid.NewResolver(cfg.Network.InterfacePattern)
	if err != nil {
		return nil, err
	}
	network := sampler.NewNetwork(src.Network, resolver, cfg.Network.DownloadMax, cfg.Network.UploadMax, width, logger.With("domain", "network"))
	d.add("network", func(context.Context) (time.Duration, error) {
		v, err := network.Sample(d.now())
		publish(&d.network, v, err)
		return cfg.Network.Interval, err
	})

	if cfg.Network.PublicIPInterval > 0 && src.PublicIP != nil {
		d.publicIP = netid.NewPublicIP(src.PublicIP, logger.With("domain", "public_ip"))
		d.add("public_ip", func(ctx context.Context) (time.Duration, error) {
			_, err := d.publicIP.Refresh(ctx)
			return cfg.Network.PublicIPInterval, err
		})
	}

	if cfg.Weather.Enabled && src.Weather != nil {
		wc := cache.New[weather.Data](cfg.Weather.CacheFile, cache.Policy{
			TTL:          cfg.Weather.Interval,
			Interval:     cfg.Weather.Interval,
			RetryTimeout: cfg.Weather.RetryTimeout,
		}, logger.With("domain", "weather"))
		fetch := func(ctx context.Context) (weather.Data, error) {
			ctx, cancel := context.WithTimeout(ctx, weather.RequestTimeout)
			defer cancel()
			return src.Weather.Fetch(ctx)
		}
		d.add("weather", func(ctx context.Context) (time.Duration, error) {
			r := wc.Poll(ctx, fetch)
			st := weather.Status{Sampled: true}
			if r.Err != nil {
				st.Err = r.Err.Error()
			} else {
				st.Data, st.FetchedAt = r.Value, r.FetchedAt
			}
			d.weather.Store(&st)
			return r.Next, r.Err
		})
	}

	return d, nil
}

func (d *Driver) add(name string, tick func(context.Context) (time.Duration, error)) {
	d.tasks = append(d.tasks, task{name: name, tick: tick})
}

// Tasks lists the enabled domain tasks in start order.
func (d *Driver) Tasks() []string {
	names := make([]string, len(d.tasks))
	for i, t := range d.tasks {
		names[i] = t.name
	}
	return names
}

// Run starts every task and blocks until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range d.tasks {
		g.Go(func() error {
			d.loop(ctx, t)
			return nil
		})
	}
	d.logger.Info("engine started", "tasks", d.Tasks())
	err := g.Wait()
	d.logger.Info("engine stopped")
	return err
}

// Once runs a single tick of every task concurrently and waits for all.
func (d *Driver) Once(ctx context.Context) {
	var g errgroup.Group
	for _, t := range d.tasks {
		g.Go(func() error {
			d.run(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

// loop only waits on the timer, so a tick in progress completes before ctx
// cancellation is noticed.
func (d *Driver) loop(ctx context.Context, t task) {
	for {
		delay := d.run(ctx, t)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (d *Driver) run(ctx context.Context, t task) time.Duration {
	start := time.Now()
	delay, err := t.tick(ctx)
	took := time.Since(start)
	if err != nil {
		d.logger.Debug("tick failed", "task", t.name, "error", err)
	}
	if d.observer != nil {
		d.observer.ObserveTick(t.name, took, err)
	}
	return delay
}

// publish stores v, or keeps the previous value alongside err.
func publish[T any](p *atomic.Pointer[Reading[T]], v T, err error) {
	r := Reading[T]{Sampled: true, Value: v}
	if err != nil {
		r.Err = err.Error()
		if prev := p.Load(); prev != nil {
			r.Value = prev.Value
		}
	}
	p.Store(&r)
}
