// Package playlist implements the Playlist Controller (C5): the song
// list, focus/selection indices, search filter, and repeat/shuffle mode,
// reacting to end-of-song by picking the next track per repeat semantics.
package playlist

import (
	"math/rand/v2"
	"sync"
)

// Song is an immutable playlist entry; the playlist's index into songs is
// its stable identity (spec §3's Song/Playlist state model).
type Song struct {
	FullPath    string
	DisplayName string
}

// RepeatMode is one of {NONE, TRACK, PLAYLIST}, grounded on climp's
// internal/ui/repeat.go RepeatMode enum (renamed: Off/One/All -> the
// spec's NONE/TRACK/PLAYLIST).
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatTrack
	RepeatPlaylist
)

// Next and Prev cycle through {NONE, TRACK, PLAYLIST} in either direction,
// for cycle_repeat_mode(forward).
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatNone:
		return RepeatTrack
	case RepeatTrack:
		return RepeatPlaylist
	default:
		return RepeatNone
	}
}

func (r RepeatMode) Prev() RepeatMode {
	switch r {
	case RepeatNone:
		return RepeatPlaylist
	case RepeatPlaylist:
		return RepeatTrack
	default:
		return RepeatNone
	}
}

func (r RepeatMode) String() string {
	switch r {
	case RepeatTrack:
		return "track"
	case RepeatPlaylist:
		return "playlist"
	default:
		return "none"
	}
}

// Playlist holds the C5 state. Mutated only from T-ui (or T-remote through
// the Control Plane, per §5); all methods take an internal lock so readers
// on another thread never observe a torn filter/index pair.
type Playlist struct {
	mu sync.Mutex

	songs []Song

	filterIndices      []int
	focusedFilterIndex int
	selectedSongIndex  int
	hasSelection       bool

	repeatMode RepeatMode

	// shuffle permutes the order select_next/select_prev/on_song_end walk
	// filterIndices in, without touching filterIndices itself — kept from
	// climp's internal/ui/shuffle.go as an orthogonal toggle (see
	// SPEC_FULL.md's SUPPLEMENTED FEATURES).
	shuffle      bool
	shuffleOrder []int // a permutation of filterIndices positions
	shufflePos   int   // current position within shuffleOrder
}

// New creates a Playlist with every song initially visible, in order.
func New(songs []Song) *Playlist {
	filter := make([]int, len(songs))
	for i := range songs {
		filter[i] = i
	}
	return &Playlist{
		songs:         songs,
		filterIndices: filter,
	}
}

// Songs returns the full, immutable song list.
func (p *Playlist) Songs() []Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Song, len(p.songs))
	copy(out, p.songs)
	return out
}

// FilterIndices returns a snapshot of the current search filter.
func (p *Playlist) FilterIndices() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.filterIndices))
	copy(out, p.filterIndices)
	return out
}

// FocusedFilterIndex returns the UI cursor position within FilterIndices.
func (p *Playlist) FocusedFilterIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focusedFilterIndex
}

// SelectedSongIndex returns the index (into Songs) of the song currently
// playing, and whether a selection has ever been made.
func (p *Playlist) SelectedSongIndex() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectedSongIndex, p.hasSelection
}

func (p *Playlist) RepeatMode() RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeatMode
}

func (p *Playlist) Shuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shuffle
}

// Select sets selected_song_index = filter_indices[filterIndex] and moves
// focus to it, returning the song's full path for the Control Plane to
// hand the Mixer. ok is false for an out-of-range filterIndex.
func (p *Playlist) Select(filterIndex int) (path string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if filterIndex < 0 || filterIndex >= len(p.filterIndices) {
		return "", false
	}
	p.focusedFilterIndex = filterIndex
	p.selectedSongIndex = p.filterIndices[filterIndex]
	p.hasSelection = true
	p.syncShufflePosLocked()
	return p.songs[p.selectedSongIndex].FullPath, true
}

// SelectNext/SelectPrev advance within filter_indices per the current
// iteration order (shuffle-aware), wrapping modulo size, and return the
// new selection's path.
func (p *Playlist) SelectNext() (path string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, _, advanced := p.stepLocked(1)
	if !advanced {
		return "", false
	}
	p.selectedSongIndex = idx
	p.hasSelection = true
	return p.songs[idx].FullPath, true
}

func (p *Playlist) SelectPrev() (path string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, _, advanced := p.stepLocked(-1)
	if !advanced {
		return "", false
	}
	p.selectedSongIndex = idx
	p.hasSelection = true
	return p.songs[idx].FullPath, true
}

// Focus* are pure UI-state updates with no playback effect, per §4.5 —
// always a plain clamp over filter_indices positions, never shuffle-aware.
func (p *Playlist) Focus(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedFilterIndex = p.clampFocusLocked(i)
}

func (p *Playlist) FocusNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedFilterIndex = p.clampFocusLocked(p.focusedFilterIndex + 1)
}

func (p *Playlist) FocusPrev() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedFilterIndex = p.clampFocusLocked(p.focusedFilterIndex - 1)
}

func (p *Playlist) FocusFirst() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedFilterIndex = p.clampFocusLocked(0)
}

func (p *Playlist) FocusLast() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusedFilterIndex = p.clampFocusLocked(len(p.filterIndices) - 1)
}

// FocusSelected moves focus to the currently selected song's filter
// position, if it is visible under the current filter.
func (p *Playlist) FocusSelected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasSelection {
		return
	}
	for pos, songIdx := range p.filterIndices {
		if songIdx == p.selectedSongIndex {
			p.focusedFilterIndex = pos
			return
		}
	}
}

func (p *Playlist) clampFocusLocked(i int) int {
	n := len(p.filterIndices)
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// OnSongEnd is invoked by the Control Plane when the Mixer raises
// song_end. It returns the path of the song to play next and whether the
// player should quit (NONE repeat, past the last song, per §4.5/§8).
func (p *Playlist) OnSongEnd() (path string, quit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasSelection {
		return "", true
	}

	switch p.repeatMode {
	case RepeatTrack:
		return p.songs[p.selectedSongIndex].FullPath, false

	case RepeatPlaylist:
		idx, _, advanced := p.stepLocked(1)
		if !advanced {
			return "", true
		}
		p.selectedSongIndex = idx
		return p.songs[idx].FullPath, false

	default: // RepeatNone
		idx, wrapped, advanced := p.stepLocked(1)
		if !advanced || wrapped {
			return "", true
		}
		p.selectedSongIndex = idx
		return p.songs[idx].FullPath, false
	}
}

// CycleRepeatMode rotates {NONE, TRACK, PLAYLIST}.
func (p *Playlist) CycleRepeatMode(forward bool) RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if forward {
		p.repeatMode = p.repeatMode.Next()
	} else {
		p.repeatMode = p.repeatMode.Prev()
	}
	return p.repeatMode
}

// ToggleShuffle flips shuffle on/off, regenerating the permutation when
// turning on so the walk from here is freshly randomized, and synchronizes
// shufflePos to the focused filter position (which Select and the
// Next/Prev steps keep on the playing song) so the walk doesn't jump.
func (p *Playlist) ToggleShuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuffle = !p.shuffle
	if p.shuffle {
		p.reshuffleLocked()
	}
	return p.shuffle
}

func (p *Playlist) reshuffleLocked() {
	n := len(p.filterIndices)
	p.shuffleOrder = rand.Perm(n)
	p.syncShufflePosLocked()
}

// syncShufflePosLocked finds where the current focused position sits
// within shuffleOrder, so toggling shuffle on (or reselecting) doesn't
// make the walk jump away from the song that's actually playing.
func (p *Playlist) syncShufflePosLocked() {
	if !p.shuffle || len(p.shuffleOrder) != len(p.filterIndices) {
		return
	}
	for pos, filterPos := range p.shuffleOrder {
		if filterPos == p.focusedFilterIndex {
			p.shufflePos = pos
			return
		}
	}
}

// stepLocked advances the selection by dir (+1 or -1) along the current
// iteration order — the plain filter_indices order, or shuffleOrder when
// shuffle is on — wrapping modulo size. It reports whether the step
// wrapped around the end (used by on_song_end's NONE/PLAYLIST distinction)
// and whether any step was possible at all (false when filter_indices is
// empty).
func (p *Playlist) stepLocked(dir int) (songIndex int, wrapped bool, ok bool) {
	n := len(p.filterIndices)
	if n == 0 {
		return 0, false, false
	}

	if p.shuffle && len(p.shuffleOrder) == n {
		next := p.shufflePos + dir
		wrapped = next < 0 || next >= n
		next = ((next % n) + n) % n
		p.shufflePos = next
		p.focusedFilterIndex = p.shuffleOrder[next]
		return p.filterIndices[p.focusedFilterIndex], wrapped, true
	}

	next := p.focusedFilterIndex + dir
	wrapped = next < 0 || next >= n
	next = ((next % n) + n) % n
	p.focusedFilterIndex = next
	return p.filterIndices[next], wrapped, true
}
