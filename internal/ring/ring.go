// SPDX-License-Identifier: MIT
/*
Package ring implements the fixed-capacity sample FIFO that connects the
real-time capture callback to the spectral analyzer.

Thread Safety:
  - Exactly one producer goroutine/thread may call Push.
  - Exactly one consumer goroutine may call Pop and PopInto.
  - Len, Cap and Dropped are safe from either side.

The producer owns the tail index and the consumer owns the head index. Both
are monotonically increasing counters published with atomic stores, so the
consumer only ever observes samples whose write has been committed. A push
against a full buffer is rejected and the incoming sample is discarded; the
samples already queued are never overwritten.
*/
package ring

import (
	"fmt"
	"sync/atomic"
)

// Buffer is a lock-free single-producer/single-consumer queue of mono samples.
type Buffer struct {
	data []float32
	size uint64

	_    [56]byte      // keep head and tail on separate cache lines
	head atomic.Uint64 // next read position, written by the consumer only
	_    [56]byte
	tail atomic.Uint64 // next write position, written by the producer only
	_    [56]byte

	dropped atomic.Uint64 // pushes rejected because the buffer was full
}

// New allocates a Buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("ring: capacity must be positive, got %d", capacity)) // programming error
	}
	return &Buffer{
		data: make([]float32, capacity),
		size: uint64(capacity),
	}
}

// Push appends v if there is room and reports whether it was stored.
// It never blocks and never allocates. Producer side only.
func (b *Buffer) Push(v float32) bool {
	tail := b.tail.Load()
	if tail-b.head.Load() >= b.size {
		b.dropped.Add(1)
		return false
	}
	b.data[tail%b.size] = v
	b.tail.Store(tail + 1)
	return true
}

// Pop removes and returns the oldest sample. Consumer side only.
func (b *Buffer) Pop() (float32, bool) {
	head := b.head.Load()
	if head == b.tail.Load() {
		return 0, false
	}
	v := b.data[head%b.size]
	b.head.Store(head + 1)
	return v, true
}

// PopInto removes up to len(dst) of the oldest samples, in FIFO order, into
// dst and returns how many were copied. Consumer side only.
func (b *Buffer) PopInto(dst []float32) int {
	head := b.head.Load()
	n := b.tail.Load() - head
	if n > uint64(len(dst)) {
		n = uint64(len(dst))
	}
	if n == 0 {
		return 0
	}

	start := head % b.size
	first := min(n, b.size-start)
	copy(dst, b.data[start:start+first])
	copy(dst[first:n], b.data[:n-first])

	b.head.Store(head + n)
	return int(n)
}

// Len returns the number of committed samples waiting to be popped.
func (b *Buffer) Len() int {
	head := b.head.Load()
	return int(b.tail.Load() - head)
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return int(b.size)
}

// Dropped returns the total number of samples rejected by Push.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}
