package sampler

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/ring"
)

// MemorySource is the slice of the OS the memory sampler reads.
type MemorySource interface {
	VirtualMemory() (*mem.VirtualMemoryStat, error)
	SwapMemory() (*mem.SwapMemoryStat, error)
}

var reFrequency = regexp.MustCompile(`\d+ MHz`)

// Memory samples RAM and swap usage.
type Memory struct {
	src       MemorySource
	logger    *slog.Logger
	frequency string

	history     *ring.Buffer[float64]
	swapHistory *ring.Buffer[float64]
}

// NewMemory checks that total memory can be queried, which is fatal when it
// cannot. frequencyFile optionally names a hardware listing (e.g. lshw
// output) whose first "<n> MHz" is the memory clock.
func NewMemory(src MemorySource, frequencyFile string, historyCap int, logger *slog.Logger) (*Memory, error) {
	if _, err := src.VirtualMemory(); err != nil {
		return nil, fmt.Errorf("sampler: total memory: %w", err)
	}
	m := &Memory{
		src:         src,
		logger:      discardLogger(logger),
		history:     ring.New[float64](historyCap),
		swapHistory: ring.New[float64](historyCap),
	}
	if frequencyFile != "" {
		m.frequency = readFrequency(frequencyFile)
		if m.frequency == "" {
			m.logger.Info("memory frequency unavailable", "file", frequencyFile)
		}
	}
	return m, nil
}

// Sample reads one memory tick.
func (m *Memory) Sample(now time.Time) (model.Memory, error) {
	vm, err := m.src.VirtualMemory()
	if err != nil {
		return model.Memory{}, fmt.Errorf("sampler: virtual memory: %w", err)
	}
	out := model.Memory{
		At:         now,
		UsedBytes:  vm.Used,
		TotalBytes: vm.Total,
		Frequency:  m.frequency,
	}
	if swap, err := m.src.SwapMemory(); err == nil && swap != nil {
		out.SwapUsed, out.SwapTotal = swap.Used, swap.Total
	}

	pushRatio(m.history, model.Ratio(out.UsedBytes, out.TotalBytes))
	pushRatio(m.swapHistory, model.Ratio(out.SwapUsed, out.SwapTotal))
	out.History = m.history.Values()
	out.SwapHistory = m.swapHistory.Values()
	return out, nil
}

func readFrequency(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(reFrequency.Find(b))
}
