package decodepump

import (
	"sync"
	"testing"
	"time"

	"github.com/olivier-w/climp/internal/decoder"
	"github.com/olivier-w/climp/internal/ringbuf"
)

// stubDecoder hands out a fixed number of frames per call before reporting
// end_of_file, mirroring Decoder.WriteToBuffer's contract.
type stubDecoder struct {
	mu            sync.Mutex
	framesPerCall int
	callsLeft     int
}

func (s *stubDecoder) WriteToBuffer(dst []float32, requestedFrames, channelCount int) (int, decoder.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callsLeft <= 0 {
		return 0, decoder.StatusEndOfFile
	}
	s.callsLeft--

	frames := s.framesPerCall
	if frames > requestedFrames {
		frames = requestedFrames
	}
	n := frames * channelCount
	for i := range dst[:n] {
		dst[i] = 1
	}
	status := decoder.StatusOK
	if s.callsLeft <= 0 {
		status = decoder.StatusEndOfFile
	}
	return n, status
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestPumpStartsIdleAndFillsRingBuffer(t *testing.T) {
	rb := ringbuf.New(8192)
	stub := &stubDecoder{framesPerCall: 512, callsLeft: 100}
	var decMu sync.Mutex

	p := New(rb, 256, 2, &decMu, func() Decoder { return stub })
	defer p.Stop()

	if p.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", p.State())
	}

	p.Start()
	if p.State() != StateRunning {
		t.Fatalf("state after Start() = %v, want running", p.State())
	}

	waitFor(t, time.Second, func() bool { return rb.Available() > 0 })
}

func TestPumpTransitionsToDrainingOnDecoderExhaustion(t *testing.T) {
	rb := ringbuf.New(8192)
	stub := &stubDecoder{framesPerCall: 512, callsLeft: 1}
	var decMu sync.Mutex

	p := New(rb, 256, 2, &decMu, func() Decoder { return stub })
	defer p.Stop()

	p.Start()

	waitFor(t, time.Second, func() bool { return p.State() == StateDraining })
	if !p.DecoderExhausted() {
		t.Fatalf("DecoderExhausted() = false after reaching draining")
	}

	p.Drained()
	if p.State() != StateIdle {
		t.Fatalf("state after Drained() = %v, want idle", p.State())
	}
}

func TestPumpDrainedIsNoopUnlessDraining(t *testing.T) {
	rb := ringbuf.New(8192)
	stub := &stubDecoder{framesPerCall: 512, callsLeft: 100}
	var decMu sync.Mutex

	p := New(rb, 256, 2, &decMu, func() Decoder { return stub })
	defer p.Stop()

	p.Start()
	waitFor(t, time.Second, func() bool { return rb.Available() > 0 })

	p.Drained() // state is RUNNING, not DRAINING; must be ignored
	if p.State() != StateRunning {
		t.Fatalf("state after spurious Drained() = %v, want running", p.State())
	}
}

func TestPumpStopShutsDownBackgroundGoroutine(t *testing.T) {
	rb := ringbuf.New(8192)
	stub := &stubDecoder{framesPerCall: 512, callsLeft: 100}
	var decMu sync.Mutex

	p := New(rb, 256, 2, &decMu, func() Decoder { return stub })
	p.Start()
	waitFor(t, time.Second, func() bool { return rb.Available() > 0 })

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
	if p.State() != StateStopped {
		t.Fatalf("state after Stop() = %v, want stopped", p.State())
	}
}
