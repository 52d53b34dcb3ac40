package control

import (
	"io"
	"testing"

	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
	"github.com/olivier-w/climp/internal/ringbuf"
)

type fakePlayer struct{}

func (fakePlayer) Play()        {}
func (fakePlayer) Pause()       {}
func (fakePlayer) Close() error { return nil }

type fakeBackend struct{}

func (fakeBackend) Configure(sampleRate, channels int) error  { return nil }
func (fakeBackend) NewPlayer(r io.Reader) mixer.BackendPlayer { return fakePlayer{} }
func (fakeBackend) Close() error                              { return nil }

func newTestPlane(t *testing.T) *Plane {
	t.Helper()
	songs := []playlist.Song{
		{FullPath: "/a.mp3", DisplayName: "Alpha"},
		{FullPath: "/b.mp3", DisplayName: "Bravo"},
	}
	pl := playlist.New(songs)
	p := New(fakeBackend{}, ringbuf.New(1024), 64, pl)
	t.Cleanup(p.Quit)
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return p
}

func TestFocusCommandsNeverTouchSelection(t *testing.T) {
	p := newTestPlane(t)
	p.FocusLast()
	if got := p.GetFocusedIndex(); got != 1 {
		t.Fatalf("GetFocusedIndex() = %d, want 1", got)
	}
	if _, has := p.GetSelectedIndex(); has {
		t.Fatal("GetSelectedIndex() has a selection, want none before any play command")
	}
}

func TestSearchRebuildsFilter(t *testing.T) {
	p := newTestPlane(t)
	p.Search("bravo")
	filter := p.GetFilter()
	if len(filter) != 1 || filter[0] != 1 {
		t.Fatalf("GetFilter() after Search(\"bravo\") = %v, want [1]", filter)
	}
}

func TestCycleRepeatFiresLoopStatusChanged(t *testing.T) {
	p := newTestPlane(t)
	p.CycleRepeat(true)
	select {
	case <-p.Notifications(EventLoopStatusChanged):
	default:
		t.Fatal("Notifications(EventLoopStatusChanged) had no pending signal after CycleRepeat")
	}
	if p.GetRepeatMode() != playlist.RepeatTrack {
		t.Fatalf("GetRepeatMode() = %v, want RepeatTrack", p.GetRepeatMode())
	}
}

func TestToggleShuffleRoundTrips(t *testing.T) {
	p := newTestPlane(t)
	if !p.ToggleShuffle() {
		t.Fatal("ToggleShuffle() = false, want true on first call")
	}
	if p.ToggleShuffle() {
		t.Fatal("ToggleShuffle() = true, want false on second call")
	}
}

func TestQuitIsIdempotentAndClosesDone(t *testing.T) {
	p := newTestPlane(t)
	p.Quit()
	p.Quit()
	select {
	case <-p.Done():
	default:
		t.Fatal("Done() not closed after Quit()")
	}
}
