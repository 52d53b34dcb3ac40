package decodepump

import (
	"sync"
	"testing"

	"github.com/olivier-w/climp/internal/ringbuf"
	"pgregory.net/rapid"
)

// allStates enumerates the state machine's four states for rapid generation.
var allStates = []State{StateIdle, StateRunning, StateDraining, StateStopped}

// TestStateMachineTransitions checks the pump's two externally-driven
// transitions against §4.3's state machine from every possible starting
// state, for randomized sequences of Start/Drained calls. The background
// goroutine is stopped immediately after construction so state.Store calls
// below are the only writer, making the transition functions pure for the
// purpose of this property.
func TestStateMachineTransitions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rb := ringbuf.New(1024)
		stub := &stubDecoder{framesPerCall: 0, callsLeft: 0}
		var decMu sync.Mutex
		p := New(rb, 64, 2, &decMu, func() Decoder { return stub })
		p.Stop()

		steps := rapid.SliceOfN(rapid.SampledFrom([]string{"start", "drained"}), 1, 20).Draw(rt, "steps")
		start := rapid.SampledFrom(allStates).Draw(rt, "initial")
		p.state.Store(int32(start))

		for _, step := range steps {
			before := p.State()
			switch step {
			case "start":
				p.Start()
				if p.State() != StateRunning {
					rt.Fatalf("Start() from %v left state = %v, want running", before, p.State())
				}
				if p.DecoderExhausted() {
					rt.Fatalf("Start() did not clear decoder-exhausted flag")
				}
			case "drained":
				p.Drained()
				if before == StateDraining {
					if p.State() != StateIdle {
						rt.Fatalf("Drained() from draining left state = %v, want idle", p.State())
					}
				} else if p.State() != before {
					rt.Fatalf("Drained() from %v changed state to %v, want no-op", before, p.State())
				}
			}
		}
	})
}
