package sampler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/vitals/internal/model"
	"github.com/Dicklesworthstone/vitals/internal/topk"
)

// ProcStat is the per-process detail read in the second probe.
type ProcStat struct {
	Name        string
	Args        []string
	Running     bool
	CPU         float64
	MemoryBytes uint64
}

// ProcessSource enumerates the process table and reads one process.
type ProcessSource interface {
	Pids() ([]int32, error)
	// Stat fails when the process vanished since Pids.
	Stat(pid int32) (ProcStat, error)
}

// TaskLister is an optional ProcessSource capability for platforms whose
// process enumeration also lists thread IDs.
type TaskLister interface {
	TaskPIDs(pids []int32) (map[int32]struct{}, error)
}

// Processes ranks the live process table each tick.
type Processes struct {
	src    ProcessSource
	ranker *topk.Ranker
	logger *slog.Logger
}

// NewProcesses keeps the top k processes per axis.
func NewProcesses(src ProcessSource, k int, logger *slog.Logger) *Processes {
	return &Processes{src: src, ranker: topk.New(k), logger: discardLogger(logger)}
}

// Sample rebuilds the full snapshot from the OS and ranks it.
func (p *Processes) Sample(now time.Time) (model.Processes, error) {
	pids, err := p.src.Pids()
	if err != nil {
		return model.Processes{}, fmt.Errorf("sampler: list processes: %w", err)
	}

	var tasks map[int32]struct{}
	if tl, ok := p.src.(TaskLister); ok {
		if tasks, err = tl.TaskPIDs(pids); err != nil {
			p.logger.Debug("task listing failed, keeping all pids", "error", err)
			tasks = nil
		}
	}

	out := model.Processes{At: now}
	skipped := 0
	for _, pid := range pids {
		if _, isTask := tasks[pid]; isTask {
			continue
		}
		st, err := p.src.Stat(pid)
		if err != nil {
			skipped++
			continue
		}
		out.Total++
		if st.Running {
			out.Running++
		}
		p.ranker.Add(model.Process{
			PID:         pid,
			Command:     command(st.Name, st.Args),
			CPU:         st.CPU,
			MemoryBytes: st.MemoryBytes,
		})
	}
	out.Ranked = p.ranker.Result()
	if skipped > 0 {
		p.logger.Debug("processes vanished mid-tick", "count", skipped)
	}
	return out, nil
}

// command is the process name followed by its arguments without argv[0].
func command(name string, args []string) string {
	cmd := name
	for i, a := range args {
		if i == 0 {
			continue
		}
		cmd += " " + a
	}
	return cmd
}
