package sampler

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

const vendorToolTimeout = 400 * time.Millisecond

// System reads the local host through gopsutil, sysfs and vendor tools.
type System struct {
	procs *ProcessTable
}

func NewSystem() *System {
	return &System{procs: NewProcessTable()}
}

// Processes returns the process-table source. It keeps per-process state
// between ticks, so only one task may use it.
func (s *System) Processes() *ProcessTable { return s.procs }

func (s *System) CPUTimes(perCPU bool) ([]cpu.TimesStat, error) { return cpu.Times(perCPU) }
func (s *System) CPUInfo() ([]cpu.InfoStat, error)             { return cpu.Info() }
func (s *System) LoadAvg() (*load.AvgStat, error)              { return load.Avg() }
func (s *System) Uptime() (uint64, error)                      { return host.Uptime() }

// Temperatures returns whatever sensors could be read, even alongside a
// partial-read warning.
func (s *System) Temperatures() ([]host.TemperatureStat, error) {
	temps, err := host.SensorsTemperatures()
	if len(temps) > 0 {
		return temps, nil
	}
	return nil, err
}

func (s *System) VirtualMemory() (*mem.VirtualMemoryStat, error) { return mem.VirtualMemory() }
func (s *System) SwapMemory() (*mem.SwapMemoryStat, error)       { return mem.SwapMemory() }

func (s *System) DiskUsage(mountPoint string) (*disk.UsageStat, error) { return disk.Usage(mountPoint) }

func (s *System) DiskModel(devicePath string) (string, error) {
	out, err := runCmd(time.Second, "udevadm", "info", "--query=property", "--name="+devicePath)
	if err != nil {
		return "", fmt.Errorf("udevadm %s: %w", devicePath, err)
	}
	if m, ok := parseUdevModel(out); ok {
		return m, nil
	}
	return "", fmt.Errorf("no ID_MODEL for %s", devicePath)
}

func (s *System) DiskTemperature(devicePath string) (float64, error) {
	pattern := filepath.Join("/sys/class/block", filepath.Base(devicePath), "device/hwmon/hwmon*/temp1_input")
	paths, _ := filepath.Glob(pattern)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return parseFloat(string(b)) / 1000, nil
	}
	return 0, fmt.Errorf("no hwmon sensor for %s", devicePath)
}

func (s *System) GPUAvailable() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

func (s *System) QueryGPUs() ([]model.GPU, error) {
	out, err := runCmd(vendorToolTimeout, "nvidia-smi",
		"--query-gpu="+nvidiaSMIQuery,
		"--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	return parseNvidiaSMI(out), nil
}

func (s *System) NetIOCounters() ([]net.IOCountersStat, error)  { return net.IOCounters(true) }
func (s *System) NetInterfaces() (net.InterfaceStatList, error) { return net.Interfaces() }

func (s *System) HostInfo() (*host.InfoStat, error) { return host.Info() }

func parseUdevModel(out string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "ID_MODEL="); ok && v != "" {
			return strings.ReplaceAll(v, "_", " "), true
		}
	}
	return "", false
}

// ProcessTable caches gopsutil handles so CPU percent is measured between
// consecutive ticks rather than over each process lifetime.
type ProcessTable struct {
	procs map[int32]*process.Process
}

func NewProcessTable() *ProcessTable {
	return &ProcessTable{procs: make(map[int32]*process.Process)}
}

// Pids lists live processes and forgets handles of exited ones.
func (t *ProcessTable) Pids() ([]int32, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, err
	}
	live := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		live[pid] = struct{}{}
	}
	for pid := range t.procs {
		if _, ok := live[pid]; !ok {
			delete(t.procs, pid)
		}
	}
	return pids, nil
}

var errVanished = errors.New("process vanished")

func (t *ProcessTable) Stat(pid int32) (ProcStat, error) {
	p, ok := t.procs[pid]
	if !ok {
		var err error
		if p, err = process.NewProcess(pid); err != nil {
			return ProcStat{}, fmt.Errorf("%w: %d: %w", errVanished, pid, err)
		}
		t.procs[pid] = p
	}
	name, err := p.Name()
	if err != nil {
		delete(t.procs, pid)
		return ProcStat{}, fmt.Errorf("%w: %d: %w", errVanished, pid, err)
	}
	pct, err := p.Percent(0)
	if err != nil {
		delete(t.procs, pid)
		return ProcStat{}, fmt.Errorf("%w: %d: %w", errVanished, pid, err)
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		delete(t.procs, pid)
		return ProcStat{}, fmt.Errorf("%w: %d: %w", errVanished, pid, err)
	}
	args, _ := p.CmdlineSlice()
	status, _ := p.Status()
	return ProcStat{
		Name:        name,
		Args:        args,
		Running:     len(status) > 0 && status[0] == process.Running,
		CPU:         pct,
		MemoryBytes: mi.RSS,
	}, nil
}
