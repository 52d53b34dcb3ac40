// Package mixer implements the Mixer (C4): it owns the backend handle, runs
// the real-time audio callback (as an io.Reader a BackendPlayer pulls from),
// and owns the playback state machine — play/pause/seek/volume/mute/rate
// change and native-format renegotiation on song change.
package mixer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/olivier-w/climp/internal/applog"
	"github.com/olivier-w/climp/internal/decodepump"
	"github.com/olivier-w/climp/internal/decoder"
	"github.com/olivier-w/climp/internal/ringbuf"
)

var mixerLog = applog.With("component", "mixer")

// Mode is the Mixer's playback state, per spec §3's Playback state model.
type Mode int32

const (
	ModeIdle Mode = iota
	ModePlaying
	ModePaused
)

// Event is a per-event notification the Control Plane forwards to the
// Remote-Control Adapter.
type Event int

const (
	EventPlaybackStatusChanged Event = iota
	EventVolumeChanged
	EventSeeked
)

const bytesPerSample = 4 // float32

// scopeCapacity bounds the mono scope buffer the visualizer polls; it only
// needs enough history for one FFT window, not the whole Ring Buffer.
const scopeCapacity = 4096

// Mixer is the C4 façade. Init/Destroy/Play/.../RestoreSampleRate are
// called from the Control Plane thread and internally serialized by opMu;
// Read runs on the backend's own real-time thread and touches only the
// Ring Buffer and a small set of atomics, per §5's concurrency discipline.
type Mixer struct {
	backend Backend
	notify  func(Event)

	rb       *ringbuf.RingBuffer
	lowWater int
	pump     *decodepump.Pump

	opMu sync.Mutex

	// decMu guards dec and is shared with the Decode Pump, matching
	// §5's "decoder_mutex" discipline: held briefly here around
	// play/seek/rate-change, held by T-decode for the duration of a
	// chunk decode, never taken by Read.
	decMu sync.Mutex
	dec   *decoder.Decoder

	player BackendPlayer

	nativeRate int
	deviceRate int
	totalMs    int64

	mode         atomic.Int32
	channels     atomic.Int32 // read by Read on the audio thread; written under opMu
	volumeBits   atomic.Uint64
	muted        atomic.Bool
	framesPopped atomic.Int64
	songEnd      atomic.Bool

	readScratch []float32 // grow-only, owned by Read's caller goroutine only

	// scopeMu guards scopeBuf, a mono downmix of recently-decoded samples
	// for the visualizer (pre-gain, pre-mute). Read only ever TryLocks it, so a UI-side reader
	// holding it briefly never blocks the audio thread — at worst a
	// callback's worth of scope history is dropped.
	scopeMu  sync.Mutex
	scopeBuf []float32

	// capsOnce probes the default output device's capabilities at most
	// once per process; capsOK reports whether that probe succeeded.
	capsOnce sync.Once
	caps     DeviceCapabilities
	capsOK   bool
}

// New creates a Mixer bound to rb (shared with the Decode Pump) and
// backend. lowWater is the Ring Buffer low-water mark in frames; notify
// receives per-event notifications (nil is accepted — no-op).
func New(backend Backend, rb *ringbuf.RingBuffer, lowWater int, notify func(Event)) *Mixer {
	if notify == nil {
		notify = func(Event) {}
	}
	m := &Mixer{
		backend:  backend,
		notify:   notify,
		rb:       rb,
		lowWater: lowWater,
	}
	m.volumeBits.Store(math.Float64bits(0.8))
	m.mode.Store(int32(ModeIdle))

	m.pump = decodepump.New(rb, lowWater, 2, &m.decMu, func() decodepump.Decoder {
		m.decMu.Lock()
		d := m.dec
		m.decMu.Unlock()
		if d == nil {
			return nil
		}
		return d
	})
	return m
}

// Init opens the backend at a placeholder stereo/48kHz configuration so a
// BackendPlayer can be created before the first song is known; Play
// reconfigures it to the song's native format immediately afterwards.
func (m *Mixer) Init() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	const placeholderRate = 48000
	const placeholderChannels = 2
	if err := m.backend.Configure(placeholderRate, placeholderChannels); err != nil {
		return err
	}
	m.nativeRate = placeholderRate
	m.deviceRate = placeholderRate
	m.channels.Store(placeholderChannels)
	return nil
}

// Destroy stops the Decode Pump and closes the backend. Safe to call even
// if no file was ever opened.
func (m *Mixer) Destroy() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.pump.Stop()
	if m.player != nil {
		m.player.Pause()
		m.player.Close()
		m.player = nil
	}
	m.backend.Close()

	m.decMu.Lock()
	if m.dec != nil {
		m.dec.Close()
		m.dec = nil
	}
	m.decMu.Unlock()

	m.mode.Store(int32(ModeIdle))
}

// Play implements §4.4's play(path) contract: pause the callback, swap the
// decoder, reconfigure the device if the native format changed (preserving
// the previous speed ratio), drain the Ring Buffer of any stale samples,
// and resume.
func (m *Mixer) Play(path string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	newDec, err := decoder.Open(path)
	if err != nil {
		return err
	}

	// (1) pause callback
	if m.player != nil {
		m.player.Pause()
	}

	// (2) close previous decoder, (3) open new decoder
	m.decMu.Lock()
	prevRate, prevChannels := m.nativeRate, int(m.channels.Load())
	if m.dec != nil {
		m.dec.Close()
	}
	m.dec = newDec
	m.decMu.Unlock()

	speedRatio := 1.0
	if prevRate > 0 {
		speedRatio = float64(m.deviceRate) / float64(prevRate)
	}

	nativeRate := newDec.GetSampleRate()
	channels := newDec.GetChannels()

	// (4) reconfigure device if native sample rate/channels changed
	if nativeRate != prevRate || channels != prevChannels || m.player == nil {
		if err := m.reconfigureLocked(nativeRate, channels); err != nil {
			return err
		}
	}
	m.nativeRate = nativeRate
	m.channels.Store(int32(channels))
	m.pump.SetChannels(channels)
	m.totalMs = newDec.GetTotalMs()
	m.deviceRate = nativeRate

	// (5) preserve previous speed ratio (if any) by rescaling device rate
	if speedRatio != 1.0 {
		if err := m.reconfigureLocked(int(float64(nativeRate)*speedRatio), channels); err != nil {
			return err
		}
		m.deviceRate = int(float64(nativeRate) * speedRatio)
	}

	m.rb.Reset()
	m.framesPopped.Store(0)
	m.songEnd.Store(false)
	m.pump.Start()

	// (6) resume callback
	m.mode.Store(int32(ModePlaying))
	if m.player != nil {
		m.player.Play()
	}
	m.notify(EventPlaybackStatusChanged)
	return nil
}

// reconfigureLocked tears down the current player/backend configuration
// and rebuilds it at sampleRate/channels. Caller holds opMu.
func (m *Mixer) reconfigureLocked(sampleRate, channels int) error {
	m.warnOnCapabilityMismatch(sampleRate, channels)

	if m.player != nil {
		m.player.Pause()
		m.player.Close()
		m.player = nil
	}
	if err := m.backend.Configure(sampleRate, channels); err != nil {
		return fmt.Errorf("mixer: reconfigure to %dHz/%dch: %w", sampleRate, channels, err)
	}
	m.channels.Store(int32(channels))
	p := m.backend.NewPlayer(m)
	if p == nil {
		return fmt.Errorf("mixer: backend produced no player after configure")
	}
	m.player = p
	return nil
}

// warnOnCapabilityMismatch probes the system's default output device once
// per process and logs a warning when a reconfigure targets a sample rate or
// channel count the device doesn't natively support — oto resamples/
// downmixes regardless, so this is diagnostic only, never a hard failure.
// Probe errors (no PortAudio host API on this system, e.g. a container
// without ALSA) are logged at Debug and otherwise ignored.
func (m *Mixer) warnOnCapabilityMismatch(sampleRate, channels int) {
	m.capsOnce.Do(func() {
		caps, err := ProbeDefaultOutputDevice()
		if err != nil {
			mixerLog.Debug("probing default output device", "err", err)
			return
		}
		m.caps = caps
		m.capsOK = true
	})
	if !m.capsOK {
		return
	}
	if channels > m.caps.MaxOutputChannels {
		mixerLog.Warn("device channel count mismatch",
			"requested", channels, "device_max", m.caps.MaxOutputChannels)
	}
	if m.caps.DefaultSampleRate > 0 {
		ratio := float64(sampleRate) / m.caps.DefaultSampleRate
		if ratio > 1.5 || ratio < 0.67 {
			mixerLog.Warn("device sample rate mismatch",
				"requested_hz", sampleRate, "device_default_hz", int(m.caps.DefaultSampleRate))
		}
	}
}

// Pause sets the paused flag; idempotent.
func (m *Mixer) Pause(paused bool) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.setPausedLocked(paused)
}

func (m *Mixer) setPausedLocked(paused bool) {
	cur := Mode(m.mode.Load())
	if paused {
		if cur != ModePaused {
			if m.player != nil {
				m.player.Pause()
			}
			m.mode.Store(int32(ModePaused))
			m.notify(EventPlaybackStatusChanged)
		}
		return
	}
	if cur == ModePaused {
		if m.player != nil {
			m.player.Play()
		}
		m.mode.Store(int32(ModePlaying))
		m.notify(EventPlaybackStatusChanged)
	}
}

// TogglePause flips play/pause.
func (m *Mixer) TogglePause() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.setPausedLocked(Mode(m.mode.Load()) != ModePaused)
}

// SeekMs seeks to an absolute source position, draining the Ring Buffer so
// no stale sample plays after the call returns.
func (m *Mixer) SeekMs(absoluteMs int64) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.seekLocked(absoluteMs)
}

// SeekOffset seeks by a delta relative to the current position, clamped to
// [0, total_time_ms].
func (m *Mixer) SeekOffset(deltaMs int64) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	target := m.currentMsLocked() + deltaMs
	if target < 0 {
		target = 0
	}
	if m.totalMs > 0 && target > m.totalMs {
		target = m.totalMs
	}
	return m.seekLocked(target)
}

func (m *Mixer) seekLocked(targetMs int64) error {
	m.decMu.Lock()
	d := m.dec
	if d == nil {
		m.decMu.Unlock()
		return nil
	}
	err := d.Seek(targetMs)
	m.decMu.Unlock()
	if err != nil {
		return err
	}

	m.rb.Reset()
	if m.nativeRate > 0 {
		m.framesPopped.Store(targetMs * int64(m.nativeRate) / 1000)
	}
	m.songEnd.Store(false)
	m.notify(EventSeeked)
	return nil
}

// SetVolume clamps v to [0, MaxVolume] and applies it.
func (m *Mixer) SetVolume(v float64) {
	m.volumeBits.Store(math.Float64bits(clampVolume(v)))
	m.notify(EventVolumeChanged)
}

// VolumeUp/VolumeDown adjust volume by step, clamped.
func (m *Mixer) VolumeUp(step float64)   { m.SetVolume(m.Volume() + step) }
func (m *Mixer) VolumeDown(step float64) { m.SetVolume(m.Volume() - step) }

// ToggleMute flips the muted flag.
func (m *Mixer) ToggleMute() {
	for {
		old := m.muted.Load()
		if m.muted.CompareAndSwap(old, !old) {
			m.notify(EventVolumeChanged)
			return
		}
	}
}

// ChangeSampleRate reconfigures the device rate. save=false only changes
// device_sample_rate (a speed change); save=true resets both native and
// device rate together (used when opening a new song at 1x).
func (m *Mixer) ChangeSampleRate(rate int, save bool) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if rate <= 0 {
		return fmt.Errorf("mixer: sample rate must be positive")
	}
	if err := m.reconfigureLocked(rate, int(m.channels.Load())); err != nil {
		return err
	}
	m.deviceRate = rate
	if save {
		m.nativeRate = rate
	}
	if Mode(m.mode.Load()) != ModePaused && m.player != nil {
		m.player.Play()
	}
	return nil
}

// RestoreSampleRate sets the device rate back to the song's native rate.
func (m *Mixer) RestoreSampleRate() error {
	m.opMu.Lock()
	nativeRate := m.nativeRate
	m.opMu.Unlock()
	return m.ChangeSampleRate(nativeRate, false)
}

// NativeRate returns the currently open song's native sample rate, the
// base a speed multiplier should be applied to.
func (m *Mixer) NativeRate() int {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.nativeRate
}

// Volume returns the current stored volume.
func (m *Mixer) Volume() float64 { return math.Float64frombits(m.volumeBits.Load()) }

// Muted reports the current mute flag.
func (m *Mixer) Muted() bool { return m.muted.Load() }

// GetMode returns the current playback mode.
func (m *Mixer) GetMode() Mode { return Mode(m.mode.Load()) }

// GetTotalMs returns the currently open song's total duration.
func (m *Mixer) GetTotalMs() int64 {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.totalMs
}

// GetCurrentMs returns the current playback position, tracked by frames
// popped from the Ring Buffer divided by native rate — per the Open
// Question decision, this is the decoder's own notion of elapsed source
// time, so a sustained speed change is reflected as apparent time
// distortion rather than corrected back to wall-clock time.
func (m *Mixer) GetCurrentMs() int64 {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.currentMsLocked()
}

func (m *Mixer) currentMsLocked() int64 {
	if m.nativeRate <= 0 {
		return 0
	}
	return m.framesPopped.Load() * 1000 / int64(m.nativeRate)
}

// ConsumeSongEnd reports and clears the song-end flag raised by Read once
// the decoder is exhausted and the Ring Buffer has drained; the Control
// Plane calls this to drive on_song_end exactly once per end-of-stream
// event.
func (m *Mixer) ConsumeSongEnd() bool {
	return m.songEnd.CompareAndSwap(true, false)
}

// PumpDrained tells the Decode Pump its DRAINING -> IDLE transition may
// proceed, once the Control Plane has run on_song_end for this event.
func (m *Mixer) PumpDrained() { m.pump.Drained() }

// pushScopeLocked downmixes interleaved frames to mono and appends them to
// scopeBuf, dropping the oldest samples past scopeCapacity. Caller holds
// scopeMu.
func (m *Mixer) pushScopeLocked(interleaved []float32, channels int) {
	frames := len(interleaved) / channels
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[f*channels+c]
		}
		m.scopeBuf = append(m.scopeBuf, sum/float32(channels))
	}
	if over := len(m.scopeBuf) - scopeCapacity; over > 0 {
		m.scopeBuf = m.scopeBuf[over:]
	}
}

// Scope returns up to n of the most recently decoded mono samples, for the
// visualizer. Safe to call from the UI thread; never blocks the audio
// thread for more than a TryLock attempt.
func (m *Mixer) Scope(n int) []float32 {
	m.scopeMu.Lock()
	defer m.scopeMu.Unlock()
	if n > len(m.scopeBuf) {
		n = len(m.scopeBuf)
	}
	out := make([]float32, n)
	copy(out, m.scopeBuf[len(m.scopeBuf)-n:])
	return out
}

// CurrentDecoder exposes the currently open Decoder for metadata/cover-art
// reads, guarded by the same lock Play/Seek use.
func (m *Mixer) CurrentDecoder() *decoder.Decoder {
	m.decMu.Lock()
	defer m.decMu.Unlock()
	return m.dec
}

// Read is the audio callback (§4.4): it runs on the backend's own
// real-time thread. It never allocates beyond its one grow-only scratch
// buffer's occasional resize, never logs, and never takes decMu.
func (m *Mixer) Read(p []byte) (int, error) {
	if Mode(m.mode.Load()) == ModePaused {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	channels := int(m.channels.Load())
	if channels <= 0 {
		channels = 2
	}

	samples := len(p) / bytesPerSample
	samples -= samples % channels
	if samples <= 0 {
		return 0, nil
	}

	if cap(m.readScratch) < samples {
		m.readScratch = make([]float32, samples)
	}
	scratch := m.readScratch[:samples]
	m.rb.Pop(scratch)

	g := gain(m.Volume(), m.Muted())
	for i, s := range scratch {
		out := clampSample(s * g)
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(out))
	}

	frames := samples / channels
	m.framesPopped.Add(int64(frames))

	if m.scopeMu.TryLock() {
		m.pushScopeLocked(scratch, channels)
		m.scopeMu.Unlock()
	}

	if m.pump.DecoderExhausted() && m.rb.Available() == 0 {
		m.songEnd.Store(true)
		// Step 7's "pause the callback" is a bare atomic store, not a call
		// back into the backend: Read must never invoke BackendPlayer.Pause
		// on its own real-time thread. The Control Plane observes song_end
		// and drives the real pause/reopen dance from its own thread.
		m.mode.CompareAndSwap(int32(ModePlaying), int32(ModePaused))
	}

	return samples * bytesPerSample, nil
}
