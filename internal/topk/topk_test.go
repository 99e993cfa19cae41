package topk

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

func reference(procs []model.Process, k int, less func(a, b model.Process) bool) []model.Process {
	sorted := append([]model.Process(nil), procs...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

func byCPU(a, b model.Process) bool { return a.CPU > b.CPU }
func byMem(a, b model.Process) bool { return a.MemoryBytes > b.MemoryBytes }

func randomProcs(rng *rand.Rand, n int) []model.Process {
	procs := make([]model.Process, n)
	for i := range procs {
		procs[i] = model.Process{
			PID: int32(i + 1),
			// coarse values force plenty of ties
			CPU:         float64(rng.Intn(50)) / 2,
			MemoryBytes: uint64(rng.Intn(200)) << 20,
		}
	}
	return procs
}

func TestRankMatchesFullSort(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for _, tc := range []struct{ m, k int }{
		{1, 1}, {10, 3}, {10, 10}, {500, 10}, {2000, 25},
	} {
		procs := randomProcs(rng, tc.m)
		got := Rank(procs, tc.k)
		assert.Equal(t, reference(procs, tc.k, byCPU), got.ByCPU, "cpu m=%d k=%d", tc.m, tc.k)
		assert.Equal(t, reference(procs, tc.k, byMem), got.ByMemory, "mem m=%d k=%d", tc.m, tc.k)
	}
}

func TestFewerThanK(t *testing.T) {
	t.Parallel()
	procs := []model.Process{
		{PID: 1, CPU: 1, MemoryBytes: 30},
		{PID: 2, CPU: 3, MemoryBytes: 10},
		{PID: 3, CPU: 2, MemoryBytes: 20},
	}
	got := Rank(procs, 10)
	require.Len(t, got.ByCPU, 3)
	require.Len(t, got.ByMemory, 3)
	assert.Equal(t, []int32{2, 3, 1}, pids(got.ByCPU))
	assert.Equal(t, []int32{1, 3, 2}, pids(got.ByMemory))
}

func TestTiesKeepEncounterOrder(t *testing.T) {
	t.Parallel()
	procs := []model.Process{
		{PID: 10, CPU: 5}, {PID: 11, CPU: 5}, {PID: 12, CPU: 7}, {PID: 13, CPU: 5},
	}
	got := Rank(procs, 3)
	assert.Equal(t, []int32{12, 10, 11}, pids(got.ByCPU))
}

func TestPeakBounded(t *testing.T) {
	t.Parallel()
	const k = 10
	rng := rand.New(rand.NewSource(42))
	r := New(k)
	for m := 0; m < 10_000; m++ {
		r.Add(model.Process{PID: int32(m), CPU: rng.Float64() * 100, MemoryBytes: rng.Uint64()})
		require.LessOrEqual(t, r.Peak(), k+1)
	}
	assert.Equal(t, k+1, r.Peak())
	got := r.Result()
	assert.Len(t, got.ByCPU, k)
	assert.Len(t, got.ByMemory, k)
}

func TestRankerReusableAcrossTicks(t *testing.T) {
	t.Parallel()
	r := New(2)
	r.Add(model.Process{PID: 1, CPU: 9})
	r.Add(model.Process{PID: 2, CPU: 8})
	_ = r.Result()

	r.Add(model.Process{PID: 3, CPU: 1})
	got := r.Result()
	assert.Equal(t, []int32{3}, pids(got.ByCPU))
}

func TestNewRejectsNonPositiveK(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { New(0) })
}

func pids(ps []model.Process) []int32 {
	out := make([]int32, len(ps))
	for i, p := range ps {
		out[i] = p.PID
	}
	return out
}
