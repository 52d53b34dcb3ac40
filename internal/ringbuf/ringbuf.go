// Package ringbuf implements the single-producer/single-consumer sample
// queue that sits between the decode pump and the mixer callback.
package ringbuf

import "sync/atomic"

// RingBuffer is a wait-free SPSC queue of float32 samples. Push must only be
// called from the producer (decode pump) goroutine; Pop must only be called
// from the consumer (mixer audio callback). Capacity is rounded up to the
// next power of two so index wrap can use a bitmask instead of modulo.
//
// The only state shared between producer and consumer is the head and tail
// counters below; both are accessed with atomic loads/stores so that a
// sample published by Push happens-before the matching Pop observes it.
type RingBuffer struct {
	buf  []float32
	mask uint64
	tail atomic.Uint64 // next slot the producer will write
	head atomic.Uint64 // next slot the consumer will read
}

// New creates a RingBuffer capable of holding at least capacity samples.
// capacity is rounded up to the next power of two.
func New(capacity int) *RingBuffer {
	n := nextPowerOfTwo(capacity)
	return &RingBuffer{
		buf:  make([]float32, n),
		mask: uint64(n) - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Cap returns the buffer's fixed capacity in samples.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}

// Available returns a snapshot of how many samples are queued for Pop.
// Safe to call from either side.
func (rb *RingBuffer) Available() int {
	return int(rb.tail.Load() - rb.head.Load())
}

// FreeSpace returns a snapshot of how many samples Push can currently accept.
// Safe to call from either side.
func (rb *RingBuffer) FreeSpace() int {
	return len(rb.buf) - rb.Available()
}

// Push copies as many samples from src as there is room for and returns the
// count actually written. It never blocks and never writes more than
// FreeSpace() samples — callers that need the rest pushed must retry with
// the remainder. Producer-side only.
func (rb *RingBuffer) Push(src []float32) int {
	free := rb.FreeSpace()
	n := len(src)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	tail := rb.tail.Load()
	for i := 0; i < n; i++ {
		rb.buf[(tail+uint64(i))&rb.mask] = src[i]
	}
	// Release: make the writes above visible to the consumer's next Load.
	rb.tail.Store(tail + uint64(n))
	return n
}

// Pop fills dst with exactly len(dst) samples: the first
// min(len(dst), available) come from the queue in FIFO order, and any
// remainder is zero-filled (the documented underrun policy — no
// repeat-last-sample, no partial return). Consumer-side only.
func (rb *RingBuffer) Pop(dst []float32) int {
	// Acquire: observe every Push whose Store has completed.
	head := rb.head.Load()
	tail := rb.tail.Load()
	available := int(tail - head)

	n := len(dst)
	popped := n
	if popped > available {
		popped = available
	}

	for i := 0; i < popped; i++ {
		dst[i] = rb.buf[(head+uint64(i))&rb.mask]
	}
	for i := popped; i < n; i++ {
		dst[i] = 0
	}

	if popped > 0 {
		rb.head.Store(head + uint64(popped))
	}
	return popped
}

// Reset drops all queued samples. Producer-side operation; the consumer
// must be quiescent (mixer callback paused) while this runs, since it
// rewrites head without coordinating with a concurrent Pop.
func (rb *RingBuffer) Reset() {
	rb.head.Store(rb.tail.Load())
}
