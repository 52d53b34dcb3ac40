package ringbuf

import (
	"testing"

	"pgregory.net/rapid"
)

func samplesN(n int, start float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

func TestPushPopFIFO(t *testing.T) {
	rb := New(8)
	if got := rb.Cap(); got != 8 {
		t.Fatalf("Cap() = %d, want 8", got)
	}

	n := rb.Push(samplesN(5, 1))
	if n != 5 {
		t.Fatalf("Push wrote %d, want 5", n)
	}

	dst := make([]float32, 5)
	got := rb.Pop(dst)
	if got != 5 {
		t.Fatalf("Pop returned %d, want 5", got)
	}
	for i, v := range dst {
		if v != float32(i+1) {
			t.Fatalf("dst[%d] = %v, want %v", i, v, i+1)
		}
	}
}

func TestPushDoesNotExceedFreeSpace(t *testing.T) {
	rb := New(4)
	n := rb.Push(samplesN(10, 0))
	if n != 4 {
		t.Fatalf("Push wrote %d, want 4 (capacity)", n)
	}
	if rb.FreeSpace() != 0 {
		t.Fatalf("FreeSpace() = %d, want 0", rb.FreeSpace())
	}
}

func TestPopZeroFillsOnUnderrun(t *testing.T) {
	rb := New(8)
	rb.Push(samplesN(3, 1))

	dst := make([]float32, 6)
	got := rb.Pop(dst)
	if got != 3 {
		t.Fatalf("Pop returned %d, want 3", got)
	}
	for i := 0; i < 3; i++ {
		if dst[i] != float32(i+1) {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], i+1)
		}
	}
	for i := 3; i < 6; i++ {
		if dst[i] != 0 {
			t.Fatalf("dst[%d] = %v, want 0 (zero-fill on underrun)", i, dst[i])
		}
	}
}

func TestResetDropsQueuedSamples(t *testing.T) {
	rb := New(8)
	rb.Push(samplesN(4, 1))
	rb.Reset()
	if rb.Available() != 0 {
		t.Fatalf("Available() = %d after Reset, want 0", rb.Available())
	}
	dst := make([]float32, 4)
	if got := rb.Pop(dst); got != 0 {
		t.Fatalf("Pop after Reset returned %d, want 0", got)
	}
	for _, v := range dst {
		if v != 0 {
			t.Fatalf("Pop after Reset should be all zero-fill, got %v", v)
		}
	}
}

// TestPopExactSizeFIFOProperty checks §8's invariant: for all pop sizes P,
// Pop returns exactly P samples, the first min(P, available) of which come
// from matching earlier pushes in FIFO order, the rest zero.
func TestPopExactSizeFIFOProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cap := rapid.IntRange(1, 64).Draw(t, "cap")
		rb := New(cap)

		pushed := rapid.SliceOfN(rapid.Float32(), 0, cap).Draw(t, "pushed")
		rb.Push(pushed)
		available := rb.Available()

		p := rapid.IntRange(0, cap*2).Draw(t, "p")
		dst := make([]float32, p)
		got := rb.Pop(dst)
		if got != min(p, available) {
			t.Fatalf("Pop(%d) returned %d, want %d", p, got, min(p, available))
		}
		for i := 0; i < got; i++ {
			if dst[i] != pushed[i] {
				t.Fatalf("dst[%d] = %v, want %v (FIFO order)", i, dst[i], pushed[i])
			}
		}
		for i := got; i < p; i++ {
			if dst[i] != 0 {
				t.Fatalf("dst[%d] = %v, want 0 past available data", i, dst[i])
			}
		}
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
