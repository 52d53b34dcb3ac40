package mixer

import (
	"io"
	"math"
	"testing"

	"github.com/olivier-w/climp/internal/ringbuf"
)

type fakeBackendPlayer struct{ playing bool }

func (p *fakeBackendPlayer) Play()        { p.playing = true }
func (p *fakeBackendPlayer) Pause()       { p.playing = false }
func (p *fakeBackendPlayer) Close() error { return nil }

type fakeBackend struct {
	configureCalls int
	lastRate       int
	lastChannels   int
}

func (b *fakeBackend) Configure(sampleRate, channels int) error {
	b.configureCalls++
	b.lastRate = sampleRate
	b.lastChannels = channels
	return nil
}

func (b *fakeBackend) NewPlayer(r io.Reader) BackendPlayer { return &fakeBackendPlayer{} }
func (b *fakeBackend) Close() error                        { return nil }

func TestGainCubicCurveAndMute(t *testing.T) {
	if g := gain(1.0, false); g != 1.0 {
		t.Fatalf("gain(1.0, false) = %v, want 1.0", g)
	}
	if g := gain(0.5, false); math.Abs(float64(g)-0.125) > 1e-6 {
		t.Fatalf("gain(0.5, false) = %v, want 0.125", g)
	}
	if g := gain(1.0, true); g != 0 {
		t.Fatalf("gain(1.0, true) = %v, want 0", g)
	}
}

func TestClampVolume(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {0.5, 0.5}, {MaxVolume, MaxVolume}, {MaxVolume + 1, MaxVolume},
	}
	for _, c := range cases {
		if got := clampVolume(c.in); got != c.want {
			t.Fatalf("clampVolume(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSetVolumeClampsStoredValue(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	m.SetVolume(5.0)
	if got := m.Volume(); got != MaxVolume {
		t.Fatalf("Volume() = %v, want %v after over-range SetVolume", got, MaxVolume)
	}
	m.SetVolume(-5.0)
	if got := m.Volume(); got != 0 {
		t.Fatalf("Volume() = %v, want 0 after under-range SetVolume", got)
	}
}

func TestToggleMuteIsNoOpInPairs(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	before := m.Muted()
	m.ToggleMute()
	m.ToggleMute()
	if got := m.Muted(); got != before {
		t.Fatalf("Muted() = %v after double toggle, want unchanged %v", got, before)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	m.mode.Store(int32(ModePlaying))
	player := &fakeBackendPlayer{playing: true}
	m.player = player

	m.Pause(true)
	m.Pause(true)

	if m.GetMode() != ModePaused {
		t.Fatalf("GetMode() = %v, want ModePaused", m.GetMode())
	}
	if player.playing {
		t.Fatal("backend player still playing after Pause(true) twice")
	}
}

func TestInitConfiguresBackend(t *testing.T) {
	backend := &fakeBackend{}
	m := New(backend, ringbuf.New(1024), 64, nil)
	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if backend.configureCalls != 1 {
		t.Fatalf("Configure called %d times, want 1", backend.configureCalls)
	}
	if backend.lastChannels != 2 {
		t.Fatalf("Configure channels = %d, want 2", backend.lastChannels)
	}
}

func TestReadWritesSilenceWhilePaused(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	m.mode.Store(int32(ModePaused))

	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := m.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d bytes, want %d", n, len(buf))
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d, want 0 (silence) while paused", i, b)
		}
	}
}

func TestReadAppliesGainToPoppedSamples(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	m.mode.Store(int32(ModePlaying))
	m.channels.Store(1)
	m.SetVolume(1.0)

	rb := m.rb
	rb.Push([]float32{0.5, -0.5})

	buf := make([]byte, 2*bytesPerSample)
	n, err := m.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d bytes, want %d", n, len(buf))
	}

	got0 := math.Float32frombits(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
	if math.Abs(float64(got0)-0.5) > 1e-6 {
		t.Fatalf("first sample = %v, want 0.5 (gain 1.0 at full volume)", got0)
	}
}

func TestConsumeSongEndFiresOnceAfterDrain(t *testing.T) {
	m := New(&fakeBackend{}, ringbuf.New(1024), 64, nil)
	m.mode.Store(int32(ModePlaying))
	m.songEnd.Store(true)

	if !m.ConsumeSongEnd() {
		t.Fatal("ConsumeSongEnd() = false, want true on first call")
	}
	if m.ConsumeSongEnd() {
		t.Fatal("ConsumeSongEnd() = true on second call, want false (already consumed)")
	}
}
