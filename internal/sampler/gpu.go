package sampler

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/ring"
)

// GPUSource is the vendor management binding.
type GPUSource interface {
	GPUAvailable() bool
	QueryGPUs() ([]model.GPU, error)
}

const nvidiaSMIQuery = "name,utilization.gpu,temperature.gpu,clocks.gr,clocks.mem,memory.used,memory.total"

// GPU samples all devices reported by the vendor tool.
type GPU struct {
	src     GPUSource
	logger  *slog.Logger
	history *ring.Buffer[float64]
}

// NewGPU returns ErrGPUUnavailable when the vendor binding is absent; the
// caller skips GPU sampling for the process lifetime in that case.
func NewGPU(src GPUSource, historyCap int, logger *slog.Logger) (*GPU, error) {
	if !src.GPUAvailable() {
		return nil, ErrGPUUnavailable
	}
	return &GPU{src: src, logger: discardLogger(logger), history: ring.New[float64](historyCap)}, nil
}

// Sample reads one GPU tick.
func (g *GPU) Sample(now time.Time) (model.GPUs, error) {
	devices, err := g.src.QueryGPUs()
	if err != nil {
		return model.GPUs{At: now, History: g.history.Values()}, fmt.Errorf("sampler: gpu query: %w", err)
	}
	if len(devices) > 0 {
		pushRatio(g.history, devices[0].Util/100)
	}
	return model.GPUs{At: now, Devices: devices, History: g.history.Values()}, nil
}

// parseNvidiaSMI reads CSV rows in nvidiaSMIQuery column order.
func parseNvidiaSMI(out string) []model.GPU {
	var gpus []model.GPU
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		parts := strings.Split(sc.Text(), ",")
		if len(parts) < 7 {
			continue
		}
		gpus = append(gpus, model.GPU{
			Name:        strings.TrimSpace(parts[0]),
			Util:        parseFloat(parts[1]),
			TempC:       parseFloat(parts[2]),
			GraphicsMHz: parseFloat(parts[3]),
			MemoryMHz:   parseFloat(parts[4]),
			MemUsedMB:   parseFloat(parts[5]),
			MemTotalMB:  parseFloat(parts[6]),
		})
	}
	return gpus
}
