// Package decodepump implements the Decode Pump (C3): the single
// background goroutine that keeps the Ring Buffer above a low-water mark by
// pulling fixed-size chunks from the currently-open Decoder, and raises the
// decoder-exhausted signal for the Mixer to combine with Ring Buffer
// drain-out into the song's true end-of-stream event.
package decodepump

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/olivier-w/climp/internal/applog"
	"github.com/olivier-w/climp/internal/decoder"
	"github.com/olivier-w/climp/internal/ringbuf"
	"github.com/olivier-w/climp/internal/util"
)

// State is one of the four states in the Decode Pump's state machine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Decoder is the subset of *decoder.Decoder the pump drives. Satisfied by
// *decoder.Decoder itself; narrowed to an interface so tests can drive the
// pump's state machine with a stub instead of a real audio file.
type Decoder interface {
	WriteToBuffer(dst []float32, requestedFrames, channelCount int) (samplesWritten int, status decoder.Status)
}

// fixedChunkFrames is the pump's per-iteration decode size, grounded on
// climp's monitor loop cadence (a handful of device periods' worth of
// frames keeps a single decoder-lock hold well under a device period).
const fixedChunkFrames = 4096

// wakeInterval is the pump's poll cadence when no explicit wake is pending;
// it only matters while RUNNING and near the low-water mark, so a coarse
// interval is fine — it bounds latency, not throughput.
const wakeInterval = 10 * time.Millisecond

// Pump pulls interleaved f32 frames from whatever Decoder the getDecoder
// callback currently returns, through decMu — the same lock the Control
// Plane holds around Mixer.play()'s decoder swap and around Seek, so a
// chunk decode and a seek/song-change can never interleave mid-frame.
type Pump struct {
	rb       *ringbuf.RingBuffer
	lowWater int
	channels atomic.Int32

	decMu      *sync.Mutex
	getDecoder func() Decoder

	state            atomic.Int32
	decoderExhausted atomic.Bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	log              *applog.Logger
	throughputFrames int64
	throughputSince  time.Time
}

// throughputLogInterval bounds how often the pump reports its decode
// throughput, so a debug session gets a periodic health signal instead of a
// line per 4096-frame chunk.
const throughputLogInterval = 5 * time.Second

// New creates a Pump in the IDLE state and starts its background goroutine.
// rb is the shared Ring Buffer the Mixer callback pops from; lowWater and
// channels describe the fill target in frames and the device channel
// count; decMu/getDecoder give synchronized access to the Decoder the
// Mixer currently owns (nil when no song is open).
func New(rb *ringbuf.RingBuffer, lowWater, channels int, decMu *sync.Mutex, getDecoder func() Decoder) *Pump {
	p := &Pump{
		rb:         rb,
		lowWater:   lowWater,
		decMu:      decMu,
		getDecoder: getDecoder,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        applog.With("component", "decodepump"),
	}
	p.channels.Store(int32(channels))
	go p.run()
	return p
}

// SetChannels updates the device channel count used to size chunks and the
// low-water threshold; called by the Mixer when a new song's native
// channel count differs from the previous one.
func (p *Pump) SetChannels(channels int) { p.channels.Store(int32(channels)) }

func (p *Pump) State() State { return State(p.state.Load()) }

// Start transitions IDLE -> RUNNING on the Control Plane's "start decoding"
// command, clearing the decoder-exhausted flag for the newly opened song.
func (p *Pump) Start() {
	p.decoderExhausted.Store(false)
	p.state.Store(int32(StateRunning))
	p.kick()
}

// DecoderExhausted reports whether the current Decoder has returned
// end_of_file since the last Start. The Mixer callback combines this with
// "Ring Buffer empty" to raise the song's true end-of-stream event.
func (p *Pump) DecoderExhausted() bool { return p.decoderExhausted.Load() }

// Drained transitions DRAINING -> IDLE. Called by the Control Plane once
// the Playlist Controller's on_song_end has run for this song, per the
// ordering guarantee in spec §4.5.
func (p *Pump) Drained() {
	p.state.CompareAndSwap(int32(StateDraining), int32(StateIdle))
}

// Stop transitions to STOPPED and blocks until the background goroutine has
// exited. Safe to call exactly once.
func (p *Pump) Stop() {
	p.state.Store(int32(StateStopped))
	close(p.stop)
	<-p.done
}

func (p *Pump) kick() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pump) run() {
	defer close(p.done)

	ticker := time.NewTicker(wakeInterval)
	defer ticker.Stop()

	var chunk []float32
	p.throughputSince = time.Now()

	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
		case <-ticker.C:
		}

		if p.State() != StateRunning {
			continue
		}

		for p.State() == StateRunning {
			channels := int(p.channels.Load())
			if channels <= 0 {
				channels = 2
			}

			free := p.rb.FreeSpace()
			if free < p.lowWater*channels {
				break
			}

			want := fixedChunkFrames * channels
			if want > free {
				want = free - free%channels
			}
			if want <= 0 {
				break
			}
			if cap(chunk) < want {
				chunk = make([]float32, want)
			}
			buf := chunk[:want]

			p.decMu.Lock()
			d := p.getDecoder()
			if d == nil {
				p.decMu.Unlock()
				break
			}
			n, status := d.WriteToBuffer(buf, want/channels, channels)
			p.decMu.Unlock()

			if n > 0 {
				p.rb.Push(buf[:n])
				p.throughputFrames += int64(n / channels)
			}

			if elapsed := time.Since(p.throughputSince); elapsed >= throughputLogInterval {
				rate := float64(p.throughputFrames*int64(channels)*4) / elapsed.Seconds() // 4 bytes/float32 sample
				p.log.Debug("decode throughput", "rate", util.FormatBytesPerSecond(rate))
				p.throughputFrames = 0
				p.throughputSince = time.Now()
			}

			if status == decoder.StatusEndOfFile || status == decoder.StatusError {
				p.decoderExhausted.Store(true)
				p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
				break
			}
		}
	}
}
