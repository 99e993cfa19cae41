// Package ring holds the fixed-capacity history tracks behind every graph.
package ring

import "iter"

// Buffer is a circular buffer that overwrites its oldest entry once full.
// It is not safe for concurrent use; each buffer belongs to one sampler task.
type Buffer[T any] struct {
	data []T
	next int // index the next Push writes to
	size int
}

// New returns a buffer holding at most capacity values. A zero or negative
// capacity is a programming error and panics.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Push stores v, evicting the oldest value when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.data[b.next] = v
	b.next = (b.next + 1) % len(b.data)
	if b.size < len(b.data) {
		b.size++
	}
}

// Len is the number of stored values, min(pushed, capacity).
func (b *Buffer[T]) Len() int { return b.size }

// Cap is the fixed capacity given to New.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// All yields stored values most-recent-first. Each call starts a fresh walk.
func (b *Buffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		n := len(b.data)
		for i := 1; i <= b.size; i++ {
			if !yield(b.data[(b.next-i+n)%n]) {
				return
			}
		}
	}
}

// Values copies the stored values most-recent-first.
func (b *Buffer[T]) Values() []T {
	out := make([]T, 0, b.size)
	for v := range b.All() {
		out = append(out, v)
	}
	return out
}
