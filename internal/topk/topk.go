// Package topk keeps the K largest processes of a stream under two
// independent orderings without sorting the whole stream.
package topk

import (
	"container/heap"

	"github.com/Dicklesworthstone/vitals/internal/model"
)

type entry struct {
	proc model.Process
	key  float64
	seq  int // encounter order, used to keep ties stable
}

// minHeap keeps its weakest entry on top. Among equal keys the later
// encountered entry is weaker, so earlier entries survive eviction.
type minHeap []entry

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].seq > h[j].seq
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Ranker accumulates one tick's processes. Reuse it across ticks with Reset.
type Ranker struct {
	k    int
	seq  int
	cpu  minHeap
	mem  minHeap
	peak int
}

// New returns a ranker keeping k entries per axis. k must be positive.
func New(k int) *Ranker {
	if k <= 0 {
		panic("topk: k must be positive")
	}
	return &Ranker{
		k:   k,
		cpu: make(minHeap, 0, k+1),
		mem: make(minHeap, 0, k+1),
	}
}

// Add offers p to both rankings.
func (r *Ranker) Add(p model.Process) {
	r.push(&r.cpu, entry{proc: p, key: p.CPU, seq: r.seq})
	r.push(&r.mem, entry{proc: p, key: float64(p.MemoryBytes), seq: r.seq})
	r.seq++
}

func (r *Ranker) push(h *minHeap, e entry) {
	heap.Push(h, e)
	if h.Len() > r.peak {
		r.peak = h.Len()
	}
	if h.Len() > r.k {
		heap.Pop(h)
	}
}

// Result drains both heaps into descending sequences and resets the ranker.
func (r *Ranker) Result() model.RankedSet {
	set := model.RankedSet{
		ByCPU:    drain(&r.cpu),
		ByMemory: drain(&r.mem),
	}
	r.seq = 0
	return set
}

// Peak is the largest heap size observed since New. It never exceeds K+1.
func (r *Ranker) Peak() int { return r.peak }

func drain(h *minHeap) []model.Process {
	out := make([]model.Process, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(entry).proc
	}
	return out
}

// Rank is a convenience wrapper over a fresh Ranker.
func Rank(procs []model.Process, k int) model.RankedSet {
	r := New(k)
	for _, p := range procs {
		r.Add(p)
	}
	return r.Result()
}
