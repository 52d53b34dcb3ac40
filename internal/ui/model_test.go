package ui

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/climp/internal/control"
	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
	"github.com/olivier-w/climp/internal/ringbuf"
)

type fakePlayer struct{}

func (fakePlayer) Play()        {}
func (fakePlayer) Pause()       {}
func (fakePlayer) Close() error { return nil }

type fakeBackend struct{}

func (fakeBackend) Configure(sampleRate, channels int) error { return nil }
func (fakeBackend) NewPlayer(r io.Reader) mixer.BackendPlayer { return fakePlayer{} }
func (fakeBackend) Close() error                              { return nil }

func spaceKeyMsg() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeySpace} }

func runeKeyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func quitKeyMsg() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	songs := []playlist.Song{
		{FullPath: "/a.flac", DisplayName: "Song A"},
		{FullPath: "/b.flac", DisplayName: "Song B"},
	}
	pl := playlist.New(songs)
	p := control.New(fakeBackend{}, ringbuf.New(1024), 64, pl)
	t.Cleanup(p.Quit)
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return New(p, true)
}

func TestNewModelSyncsListFromPlaylist(t *testing.T) {
	m := newTestModel(t)
	if len(m.songList.Items()) != 2 {
		t.Fatalf("songList has %d items, want 2", len(m.songList.Items()))
	}
}

func TestViewPadsToWindowHeight(t *testing.T) {
	m := Model{
		height:      8,
		headerCache: "\n  title\n\n",
		midCache:    "  status\n\n",
		bottomCache: "\n  help\n",
	}

	view := m.View()
	if lipgloss.Height(view) < 8 {
		t.Fatalf("expected padded view height >= 8, got %d", lipgloss.Height(view))
	}
	if !strings.Contains(view, "  help\n") {
		t.Fatalf("expected help content in padded view, got %q", view)
	}
}

func TestViewIsEmptyWhenQuitting(t *testing.T) {
	m := Model{quitting: true, headerCache: "something"}
	if got := m.View(); got != "" {
		t.Fatalf("View() = %q, want empty string while quitting", got)
	}
}

func TestHandleKeyTogglePauseThenFlushLeavesNoDirtyFlags(t *testing.T) {
	m := newTestModel(t)
	_ = m.plane.Play(0)
	next, _ := m.handleMsg(spaceKeyMsg())
	next.flushCaches()
	if next.dirty != 0 {
		t.Fatalf("expected caches flushed, dirty = %v", next.dirty)
	}
}

func TestSearchModeFiltersPlaylist(t *testing.T) {
	m := newTestModel(t)
	m.searching = true
	m.searchInput.Focus()

	for _, r := range "song b" {
		next, _ := m.handleMsg(runeKeyMsg(r))
		m = next
	}
	m.refreshSnapshot()
	if len(m.filter) != 1 {
		t.Fatalf("filter = %v, want exactly one match for \"song b\"", m.filter)
	}
}

func TestQuitKeyStartsShutdown(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.handleMsg(quitKeyMsg())
	if !next.quitting {
		t.Fatal("expected quitting = true after quit key")
	}
	if cmd == nil {
		t.Fatal("expected shutdown command")
	}
}
