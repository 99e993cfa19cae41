//go:build linux

package sampler

import (
	"os"
	"strconv"
)

// TaskPIDs collects thread IDs from /proc/<pid>/task, excluding each
// process's own main thread.
func (t *ProcessTable) TaskPIDs(pids []int32) (map[int32]struct{}, error) {
	tasks := make(map[int32]struct{})
	for _, pid := range pids {
		entries, err := os.ReadDir("/proc/" + strconv.Itoa(int(pid)) + "/task")
		if err != nil {
			continue // exited between probes
		}
		for _, e := range entries {
			tid, err := strconv.ParseInt(e.Name(), 10, 32)
			if err != nil || int32(tid) == pid {
				continue
			}
			tasks[int32(tid)] = struct{}{}
		}
	}
	return tasks, nil
}
