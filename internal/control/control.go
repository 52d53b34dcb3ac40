// Package control implements the Control Plane (C6): the single
// external-command façade through which the terminal UI and the
// Remote-Control Adapter submit commands and read observable state,
// wiring the Mixer, Playlist Controller, and Decoder together per §4.6.
package control

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olivier-w/climp/internal/decoder"
	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
	"github.com/olivier-w/climp/internal/ringbuf"
)

// MetadataSnapshot is get_metadata_snapshot()'s return value — the
// dictionary §6 requires the remote-control surface to expose.
type MetadataSnapshot struct {
	Title    string
	Artist   string
	Album    string
	LengthUs int64
	TrackID  string
}

// songEndPollInterval is the Control Plane's cadence for observing the
// Mixer's song_end atomic; grounded on the Decode Pump's own wake-ticker
// idiom (internal/decodepump.wakeInterval) at a similarly coarse period,
// since song_end only needs to be noticed, not raced to.
const songEndPollInterval = 20 * time.Millisecond

// Plane is the C6 façade. cmdMu serializes command application per §4.6
// ("a seek issued during a play-next is applied to the new file") —
// every command and the song-end handler takes it for their full
// duration, so they never interleave.
type Plane struct {
	cmdMu sync.Mutex

	mixer    *mixer.Mixer
	playlist *playlist.Playlist
	notifier *Notifier

	metaMu sync.Mutex
	meta   MetadataSnapshot

	quitOnce sync.Once
	quit     atomic.Bool
	done     chan struct{}

	pollStop chan struct{}
	pollDone chan struct{}
}

// New builds the Mixer around backend/rb/lowWater, binds it to pl, and
// starts the Control Plane's song-end observation loop. Init must still
// be called before playback can start.
func New(backend mixer.Backend, rb *ringbuf.RingBuffer, lowWater int, pl *playlist.Playlist) *Plane {
	p := &Plane{
		playlist: pl,
		notifier: NewNotifier(),
		done:     make(chan struct{}),
		pollStop: make(chan struct{}),
		pollDone: make(chan struct{}),
	}
	p.mixer = mixer.New(backend, rb, lowWater, p.translateMixerEvent)
	go p.songEndLoop()
	return p
}

func (p *Plane) translateMixerEvent(e mixer.Event) {
	switch e {
	case mixer.EventPlaybackStatusChanged:
		p.notifier.Fire(EventPlaybackStatusChanged)
	case mixer.EventVolumeChanged:
		p.notifier.Fire(EventVolumeChanged)
	case mixer.EventSeeked:
		p.notifier.Fire(EventSeeked)
	}
}

// Init opens the audio backend. Must be called once before any play
// command.
func (p *Plane) Init() error {
	return p.mixer.Init()
}

// Notifications returns the coalescing signal channel for e, for the
// Remote-Control Adapter to select on.
func (p *Plane) Notifications(e Event) <-chan struct{} {
	return p.notifier.Chan(e)
}

// Done is closed once the quit command has run cleanup to completion.
func (p *Plane) Done() <-chan struct{} {
	return p.done
}

// --- commands (§4.6) ---

// Play selects filterIndex and commands the Mixer to play it.
func (p *Plane) Play(filterIndex int) error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return p.playLocked(filterIndex)
}

func (p *Plane) playLocked(filterIndex int) error {
	path, ok := p.playlist.Select(filterIndex)
	if !ok {
		return fmt.Errorf("control: filter index %d out of range", filterIndex)
	}
	if err := p.mixer.Play(path); err != nil {
		return err
	}
	p.refreshMetadataLocked()
	p.notifier.Fire(EventMetadataChanged)
	return nil
}

// TogglePause flips play/pause.
func (p *Plane) TogglePause() {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	p.mixer.TogglePause()
}

// SeekAbs seeks to an absolute source position in milliseconds.
func (p *Plane) SeekAbs(ms int64) error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	if ms < 0 {
		ms = 0
	}
	return p.mixer.SeekMs(ms)
}

// SeekRel seeks by a delta relative to the current position, clamped
// inside the Mixer to [0, total_ms].
func (p *Plane) SeekRel(deltaMs int64) error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return p.mixer.SeekOffset(deltaMs)
}

// Next/Prev advance the playlist selection by one and play it.
func (p *Plane) Next() error { return p.advance(p.playlist.SelectNext) }
func (p *Plane) Prev() error { return p.advance(p.playlist.SelectPrev) }

func (p *Plane) advance(step func() (string, bool)) error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	path, ok := step()
	if !ok {
		return nil
	}
	if err := p.mixer.Play(path); err != nil {
		return err
	}
	p.refreshMetadataLocked()
	p.notifier.Fire(EventMetadataChanged)
	return nil
}

// SetVolume clamps and applies v.
func (p *Plane) SetVolume(v float64) {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	p.mixer.SetVolume(v)
}

// VolumeBump adjusts volume by step (negative steps lower it).
func (p *Plane) VolumeBump(step float64) {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	if step >= 0 {
		p.mixer.VolumeUp(step)
	} else {
		p.mixer.VolumeDown(-step)
	}
}

// ToggleMute flips the mute flag.
func (p *Plane) ToggleMute() {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	p.mixer.ToggleMute()
}

// SetRate reconfigures the device sample rate; save persists it as the
// song's native rate (used on song open), matching §4.4's two call sites.
func (p *Plane) SetRate(rate int, save bool) error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return p.mixer.ChangeSampleRate(rate, save)
}

// RestoreRate sets the device rate back to native.
func (p *Plane) RestoreRate() error {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return p.mixer.RestoreSampleRate()
}

// GetNativeRate returns the open song's native sample rate, the base a UI
// speed multiplier is applied to.
func (p *Plane) GetNativeRate() int { return p.mixer.NativeRate() }

// CycleRepeat rotates {NONE, TRACK, PLAYLIST}.
func (p *Plane) CycleRepeat(forward bool) playlist.RepeatMode {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	mode := p.playlist.CycleRepeatMode(forward)
	p.notifier.Fire(EventLoopStatusChanged)
	return mode
}

// ToggleShuffle flips the supplemented shuffle iteration-order toggle.
func (p *Plane) ToggleShuffle() bool {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return p.playlist.ToggleShuffle()
}

// Focus moves the UI cursor without affecting playback.
func (p *Plane) Focus(i int) {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	p.playlist.Focus(i)
}

func (p *Plane) FocusNext()     { p.cmdMu.Lock(); defer p.cmdMu.Unlock(); p.playlist.FocusNext() }
func (p *Plane) FocusPrev()     { p.cmdMu.Lock(); defer p.cmdMu.Unlock(); p.playlist.FocusPrev() }
func (p *Plane) FocusFirst()    { p.cmdMu.Lock(); defer p.cmdMu.Unlock(); p.playlist.FocusFirst() }
func (p *Plane) FocusLast()     { p.cmdMu.Lock(); defer p.cmdMu.Unlock(); p.playlist.FocusLast() }
func (p *Plane) FocusSelected() { p.cmdMu.Lock(); defer p.cmdMu.Unlock(); p.playlist.FocusSelected() }

// Search rebuilds the playlist filter from query.
func (p *Plane) Search(query string) {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	p.playlist.Search(query)
}

// FuzzyRank returns the secondary "did-you-mean" ranking signal for query;
// it never touches the filter itself.
func (p *Plane) FuzzyRank(query string, limit int) []playlist.RankedSong {
	return p.playlist.FuzzyRank(query, limit)
}

// Quit runs cleanup and closes Done(). Safe to call more than once or
// concurrently; only the first call does anything.
func (p *Plane) Quit() {
	p.quitOnce.Do(func() {
		p.quit.Store(true)
		close(p.pollStop)
		<-p.pollDone
		p.mixer.Destroy()
		close(p.done)
	})
}

// --- observable-state readers (wait-free) ---

func (p *Plane) GetPlaybackState() mixer.Mode  { return p.mixer.GetMode() }
func (p *Plane) GetCurrentMs() int64           { return p.mixer.GetCurrentMs() }
func (p *Plane) GetTotalMs() int64             { return p.mixer.GetTotalMs() }
func (p *Plane) GetVolume() float64            { return p.mixer.Volume() }
func (p *Plane) GetMuted() bool                { return p.mixer.Muted() }
func (p *Plane) GetRepeatMode() playlist.RepeatMode { return p.playlist.RepeatMode() }
func (p *Plane) GetShuffle() bool              { return p.playlist.Shuffle() }
func (p *Plane) GetFocusedIndex() int          { return p.playlist.FocusedFilterIndex() }
func (p *Plane) GetFilter() []int              { return p.playlist.FilterIndices() }
func (p *Plane) Songs() []playlist.Song        { return p.playlist.Songs() }

// GetSelectedIndex returns the song index (into Songs()) currently
// playing, and whether any selection has been made yet.
func (p *Plane) GetSelectedIndex() (int, bool) {
	return p.playlist.SelectedSongIndex()
}

// GetCoverImage returns the currently open song's embedded cover art, or a
// FormatNone Image if none is open or the file carries no picture.
func (p *Plane) GetCoverImage() decoder.Image {
	dec := p.mixer.CurrentDecoder()
	if dec == nil {
		return decoder.Image{Format: decoder.FormatNone}
	}
	return dec.GetCoverImage()
}

// GetScope returns up to n of the most recently decoded mono samples, for
// an optional UI visualizer tap; never blocks the audio thread.
func (p *Plane) GetScope(n int) []float32 { return p.mixer.Scope(n) }

// GetMetadataSnapshot returns the last metadata cache refreshed by a
// successful play/next/prev/song-end transition.
func (p *Plane) GetMetadataSnapshot() MetadataSnapshot {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	return p.meta
}

// refreshMetadataLocked reads the newly-opened Decoder's tags and caches
// them. Caller holds cmdMu.
func (p *Plane) refreshMetadataLocked() {
	dec := p.mixer.CurrentDecoder()
	snap := MetadataSnapshot{}
	if dec != nil {
		snap = MetadataSnapshot{
			Title:    dec.GetMetadata("title"),
			Artist:   dec.GetMetadata("artist"),
			Album:    dec.GetMetadata("album"),
			LengthUs: dec.GetTotalMs() * 1000,
			TrackID:  dec.Path(),
		}
	}
	p.metaMu.Lock()
	p.meta = snap
	p.metaMu.Unlock()
}

// songEndLoop is the Control Plane's own background monitor, grounded on
// climp's Player.monitor() ticker idiom: it notices song_end, runs
// on_song_end exactly once per event (after the Mixer has already paused
// itself and before a new Decoder is opened), and either plays the next
// song or quits.
func (p *Plane) songEndLoop() {
	defer close(p.pollDone)

	ticker := time.NewTicker(songEndPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.pollStop:
			return
		case <-ticker.C:
		}

		if !p.mixer.ConsumeSongEnd() {
			continue
		}

		p.cmdMu.Lock()
		path, quit := p.playlist.OnSongEnd()
		p.mixer.PumpDrained()
		if quit {
			p.cmdMu.Unlock()
			go p.Quit()
			continue
		}
		if err := p.mixer.Play(path); err == nil {
			p.refreshMetadataLocked()
			p.notifier.Fire(EventMetadataChanged)
		}
		p.cmdMu.Unlock()
	}
}
