package sampler

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/ring"
)

// CPUSource is the slice of the OS the CPU sampler reads.
type CPUSource interface {
	CPUTimes(perCPU bool) ([]cpu.TimesStat, error)
	CPUInfo() ([]cpu.InfoStat, error)
	Temperatures() ([]host.TemperatureStat, error)
	LoadAvg() (*load.AvgStat, error)
	Uptime() (uint64, error)
}

var cpuModelRemove = []string{"(R)", "(TM)", "!"}

// CPU samples global and per-core usage from CPU time deltas.
type CPU struct {
	src         CPUSource
	logger      *slog.Logger
	sensorLabel string

	model string
	cores int

	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat

	history *ring.Buffer[float64]
}

// NewCPU resolves the static CPU facts and primes the time counters so the
// first Sample already reports a real delta. An empty sensorLabel disables
// the temperature readout; a configured label that no sensor reports is
// ErrSensorNotFound.
func NewCPU(src CPUSource, sensorLabel string, historyCap int, logger *slog.Logger) (*CPU, error) {
	info, err := src.CPUInfo()
	if err != nil {
		return nil, fmt.Errorf("sampler: cpu info: %w", err)
	}
	if len(info) == 0 {
		return nil, ErrNoCPU
	}
	c := &CPU{
		src:         src,
		logger:      discardLogger(logger),
		sensorLabel: sensorLabel,
		model:       cleanModel(info[0].ModelName),
		cores:       len(info),
		history:     ring.New[float64](historyCap),
	}
	if sensorLabel != "" {
		temps, _ := src.Temperatures() // partial results come with a warning error
		if _, ok := findSensor(temps, sensorLabel); !ok {
			return nil, fmt.Errorf("%w: %q", ErrSensorNotFound, sensorLabel)
		}
	}
	c.usage()
	return c, nil
}

// Sample reads one CPU tick.
func (c *CPU) Sample(now time.Time) model.CPU {
	total, perCore := c.usage()
	if len(perCore) > 0 {
		c.cores = len(perCore)
	}
	out := model.CPU{
		At:      now,
		Model:   c.model,
		Cores:   c.cores,
		Total:   total,
		PerCore: perCore,
	}

	if info, err := c.src.CPUInfo(); err == nil && len(info) > 0 {
		out.FrequencyGHz = info[0].Mhz / 1000
	}
	if c.sensorLabel != "" {
		temps, _ := c.src.Temperatures()
		if t, ok := findSensor(temps, c.sensorLabel); ok {
			out.TemperatureC, out.HasTemperature = t, true
		} else {
			c.logger.Warn("cpu temperature sensor missing this tick", "label", c.sensorLabel)
		}
	}
	if avg, err := c.src.LoadAvg(); err == nil && avg != nil {
		out.Load1, out.Load5, out.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if up, err := c.src.Uptime(); err == nil {
		out.Uptime = time.Duration(up) * time.Second
	}

	pushRatio(c.history, total/100)
	out.History = c.history.Values()

	c.logger.Debug("cpu sampled", "total", total, "freq_ghz", out.FrequencyGHz, "temp", out.TemperatureC)
	return out
}

// usage returns CPU percentages from times deltas.
func (c *CPU) usage() (total float64, perCore []float64) {
	times, _ := c.src.CPUTimes(false)
	if len(times) > 0 {
		cur := times[0]
		curTotal := cur.Total()
		curIdle := cur.Idle + cur.Iowait
		if c.prevTotal > 0 {
			dt := curTotal - c.prevTotal
			di := curIdle - c.prevIdle
			if dt > 0 {
				total = clampPercent(100 * (1 - di/dt))
			}
		}
		c.prevTotal, c.prevIdle = curTotal, curIdle
	}

	coreTimes, _ := c.src.CPUTimes(true)
	perCore = make([]float64, len(coreTimes))
	for i, ct := range coreTimes {
		if i >= len(c.prevCore) {
			continue
		}
		prev := c.prevCore[i]
		dt := ct.Total() - prev.Total()
		di := (ct.Idle + ct.Iowait) - (prev.Idle + prev.Iowait)
		if dt > 0 {
			perCore[i] = clampPercent(100 * (1 - di/dt))
		}
	}
	c.prevCore = coreTimes
	return total, perCore
}

func clampPercent(v float64) float64 { return clampRatio(v/100) * 100 }

func cleanModel(s string) string {
	for _, r := range cpuModelRemove {
		s = strings.ReplaceAll(s, r, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

// findSensor matches a human label such as "Package id 0" against sensor
// keys such as "coretemp_package_id_0".
func findSensor(temps []host.TemperatureStat, label string) (float64, bool) {
	want := sensorKey(label)
	for _, t := range temps {
		key := sensorKey(t.SensorKey)
		if key == want || strings.HasSuffix(key, "_"+want) {
			return t.Temperature, true
		}
	}
	return 0, false
}

func sensorKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}
