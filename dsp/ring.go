package dsp

import "sync/atomic"

// Ring is a bounded single-producer single-consumer queue. Push and Pop never
// block or allocate, so one side may run in the sample-rate domain. Only one
// goroutine may push and only one may pop at a time.
type Ring[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64 // next slot to write, owned by the producer
	tail atomic.Uint64 // next slot to read, owned by the consumer
}

// NewRing returns a ring holding at least size elements; the capacity is
// rounded up to a power of two.
func NewRing[T any](size int) *Ring[T] {
	n := 1
	for n < size {
		n <<= 1
	}
	return &Ring[T]{buf: make([]T, n), mask: uint64(n - 1)}
}

// Push appends v and reports false, dropping v, when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	head := r.head.Load()
	if head-r.tail.Load() == uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// Pop removes the oldest element.
func (r *Ring[T]) Pop() (v T, ok bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return v, false
	}
	v = r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return v, true
}

// Len is the number of queued elements; it is exact only when called by the
// producer or the consumer while the other side is idle.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}
