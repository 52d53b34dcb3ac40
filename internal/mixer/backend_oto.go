package mixer

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// otoBackend drives github.com/ebitengine/oto/v3, configured for
// Float32LE samples so the device sink matches the f32 pipeline end to
// end — climp's original Player configured Int16LE instead, grounded on
// that same NewContext/ready-channel idiom (internal/player/player.go).
//
// Reconfiguring an already-opened oto context at runtime is not something
// every platform's audio driver supports gracefully; this backend is the
// engine's one concrete instance of the out-of-scope "device driver"
// capability, so that limitation is accepted here rather than worked
// around with software resampling (a Non-goal).
type otoBackend struct {
	mu  sync.Mutex
	ctx *oto.Context
}

// NewOtoBackend returns an unconfigured backend; call Configure before use.
func NewOtoBackend() *otoBackend {
	return &otoBackend{}
}

func (b *otoBackend) Configure(sampleRate, channels int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("mixer: opening audio device: %w", err)
	}
	<-ready
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("mixer: audio device error: %w", ctxErr)
	}

	b.ctx = ctx
	return nil
}

func (b *otoBackend) NewPlayer(r io.Reader) BackendPlayer {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	if ctx == nil {
		return nil
	}
	return &otoPlayer{p: ctx.NewPlayer(r)}
}

func (b *otoBackend) Close() error { return nil }

type otoPlayer struct{ p *oto.Player }

func (p *otoPlayer) Play()        { p.p.Play() }
func (p *otoPlayer) Pause()       { p.p.Pause() }
func (p *otoPlayer) Close() error { return p.p.Close() }
