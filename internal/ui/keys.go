package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "ctrl+c":
		return true
	}
	return false
}

// keyMap defines all keybindings for the help component.
type keyMap struct {
	Pause      key.Binding
	Seek       key.Binding
	Volume     key.Binding
	Mute       key.Binding
	Repeat     key.Binding
	Shuffle    key.Binding
	Speed      key.Binding
	Visualizer key.Binding
	NextTrack  key.Binding
	PrevTrack  key.Binding
	Scroll     key.Binding
	Play       key.Binding
	Search     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause"),
		),
		Seek: key.NewBinding(
			key.WithKeys("left", "right"),
			key.WithHelp("←/→", "seek"),
		),
		Volume: key.NewBinding(
			key.WithKeys("+", "-"),
			key.WithHelp("+/-", "volume"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		Repeat: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "repeat"),
		),
		Shuffle: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "shuffle"),
			key.WithDisabled(),
		),
		Speed: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "speed"),
		),
		Visualizer: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "visualizer"),
		),
		NextTrack: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next track"),
		),
		PrevTrack: key.NewBinding(
			key.WithKeys("N", "p"),
			key.WithHelp("N/p", "prev track"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("j", "k", "up", "down"),
			key.WithHelp("j/k", "browse"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// updateEnabled enables or disables conditional bindings.
func (k *keyMap) updateEnabled(hasMultiple bool) {
	k.Shuffle.SetEnabled(hasMultiple)
}

// ShortHelp returns the keybindings shown in the collapsed help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Seek, k.Volume, k.Search, k.Help, k.Quit}
}

// FullHelp returns keybindings organized into columns for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	playback := []key.Binding{k.Pause, k.Seek, k.Volume, k.Mute, k.Repeat, k.Speed, k.Shuffle, k.Visualizer}
	browse := []key.Binding{k.NextTrack, k.PrevTrack, k.Scroll, k.Play, k.Search}
	other := []key.Binding{k.Help, k.Quit}
	return [][]key.Binding{playback, browse, other}
}
