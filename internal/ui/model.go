package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/climp/internal/control"
	"github.com/olivier-w/climp/internal/mixer"
	"github.com/olivier-w/climp/internal/playlist"
	"github.com/olivier-w/climp/internal/util"
	"github.com/olivier-w/climp/internal/visualizer"
)

// Dirty flags for cache invalidation.
type dirtyFlags uint8

const (
	dirtyHeader dirtyFlags = 1 << iota
	dirtyMid
	dirtyList
	dirtyBottom
)

const maxVizHeight = 8
const maxCoverHeight = 8

// Model is the Bubbletea model for the climp TUI. It owns no playback
// state of its own — every observable value is read fresh from the
// Control Plane (C6) on each refresh and cached here only for rendering.
type Model struct {
	plane *control.Plane

	width, height int
	quitting      bool
	noImage       bool

	keys keyMap
	help help.Model

	songList    list.Model
	searchInput textinput.Model
	searching   bool

	speedIdx int

	visualizers []visualizer.Visualizer
	vizIndex    int
	vizEnabled  bool

	// Snapshot of Control Plane state, refreshed on tickMsg/controlEventMsg.
	meta         control.MetadataSnapshot
	elapsed      time.Duration
	total        time.Duration
	volume       float64
	muted        bool
	mode         mixer.Mode
	repeatMode   playlist.RepeatMode
	shuffle      bool
	songs        []playlist.Song
	filter       []int
	focusedIndex int
	selectedIdx  int
	hasSelection bool

	headerCache string
	midCache    string
	vizCache    string
	coverCache  string
	bottomCache string
	dirty       dirtyFlags
}

// songItem implements list.DefaultItem for the playlist display.
type songItem struct {
	title string
	desc  string
}

func (s songItem) FilterValue() string { return s.title }
func (s songItem) Title() string       { return s.title }
func (s songItem) Description() string { return s.desc }

func newSongList(width int) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#AAAAAA"})
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})

	l := list.New(nil, delegate, width, 14)
	l.Title = "Playlist"
	l.Styles.Title = lipgloss.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"}).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1A1A1A"}).
		Padding(0, 1)
	l.Styles.TitleBar = lipgloss.NewStyle().Padding(0, 0, 1, 2)
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.Styles.PaginationStyle = lipgloss.NewStyle().PaddingLeft(2)
	l.KeyMap.PrevPage.SetKeys("pgup")
	l.KeyMap.NextPage.SetKeys("pgdown")
	l.SetShowHelp(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	return l
}

// New creates a Model bound to plane. noImage disables embedded cover-art
// rendering even when a file carries one, per §6's --no-image flag.
func New(plane *control.Plane, noImage bool) Model {
	keys := newKeyMap()
	h := help.New()
	h.ShortSeparator = "  "
	dim := lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(dim)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(dim)
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(dim)
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(dim)
	h.Styles.FullSeparator = lipgloss.NewStyle().Foreground(dim)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(dim)

	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.Prompt = "/"
	ti.CharLimit = 128

	m := Model{
		plane:       plane,
		noImage:     noImage,
		keys:        keys,
		help:        h,
		songList:    newSongList(50),
		searchInput: ti,
		visualizers: visualizer.Modes(),
	}
	m.refreshSnapshot()
	m.syncSongList()
	m.rebuildHeaderCache()
	m.rebuildMidCache()
	m.rebuildBottomCache()
	return m
}

func (m Model) Init() tea.Cmd {
	if !m.hasSelection && len(m.filter) > 0 {
		_ = m.plane.Play(0)
	}
	return tea.Batch(
		tickCmd(),
		waitForQuit(m.plane),
		waitForEvent(m.plane, control.EventPlaybackStatusChanged),
		waitForEvent(m.plane, control.EventMetadataChanged),
		waitForEvent(m.plane, control.EventVolumeChanged),
		waitForEvent(m.plane, control.EventLoopStatusChanged),
		waitForEvent(m.plane, control.EventSeeked),
		tea.SetWindowTitle(windowTitle("climp", false)),
	)
}

func (m *Model) refreshSnapshot() {
	m.meta = m.plane.GetMetadataSnapshot()
	m.elapsed = time.Duration(m.plane.GetCurrentMs()) * time.Millisecond
	m.total = time.Duration(m.plane.GetTotalMs()) * time.Millisecond
	m.volume = m.plane.GetVolume()
	m.muted = m.plane.GetMuted()
	m.mode = m.plane.GetPlaybackState()
	m.repeatMode = m.plane.GetRepeatMode()
	m.shuffle = m.plane.GetShuffle()
	m.songs = m.plane.Songs()
	m.filter = m.plane.GetFilter()
	m.focusedIndex = m.plane.GetFocusedIndex()
	m.selectedIdx, m.hasSelection = m.plane.GetSelectedIndex()
}

// syncSongList rebuilds songList items from the current filter/selection
// snapshot and moves its cursor to the focused position.
func (m *Model) syncSongList() {
	items := make([]list.Item, 0, len(m.filter))
	for pos, songIdx := range m.filter {
		if songIdx < 0 || songIdx >= len(m.songs) {
			continue
		}
		desc := fmt.Sprintf("track %d of %d", pos+1, len(m.filter))
		if m.hasSelection && songIdx == m.selectedIdx {
			if m.mode == mixer.ModePaused {
				desc = "paused"
			} else {
				desc = "playing"
			}
		}
		items = append(items, songItem{title: m.songs[songIdx].DisplayName, desc: desc})
	}
	m.songList.SetItems(items)
	if m.focusedIndex >= 0 && m.focusedIndex < len(items) {
		m.songList.Select(m.focusedIndex)
	}
}

func (m *Model) invalidate(flags dirtyFlags) { m.dirty |= flags }

func (m *Model) flushCaches() {
	if m.dirty == 0 {
		return
	}
	if m.dirty&dirtyList != 0 {
		m.syncSongList()
	}
	if m.dirty&dirtyHeader != 0 {
		m.rebuildHeaderCache()
	}
	if m.dirty&dirtyMid != 0 {
		m.rebuildMidCache()
	}
	if m.dirty&(dirtyList|dirtyBottom) != 0 {
		m.rebuildBottomCache()
	}
	m.dirty = 0
}

func (m *Model) rebuildHeaderCache() {
	var sb strings.Builder
	sb.WriteString("\n  ")
	title := m.meta.Title
	if title == "" {
		title = "climp"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteByte('\n')

	if m.meta.Artist != "" && m.meta.Album != "" {
		sb.WriteString("  ")
		sb.WriteString(artistStyle.Render(fmt.Sprintf("%s - %s", m.meta.Artist, m.meta.Album)))
		sb.WriteByte('\n')
	} else if m.meta.Artist != "" {
		sb.WriteString("  ")
		sb.WriteString(artistStyle.Render(m.meta.Artist))
		sb.WriteByte('\n')
	} else if m.meta.Album != "" {
		sb.WriteString("  ")
		sb.WriteString(artistStyle.Render(m.meta.Album))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	m.headerCache = sb.String()

	if m.noImage {
		m.coverCache = ""
		return
	}
	img := m.plane.GetCoverImage()
	cover := renderCover(img, 2*maxCoverHeight, maxCoverHeight)
	if cover == "" {
		m.coverCache = ""
		return
	}
	var cb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(cover, "\n"), "\n") {
		cb.WriteString("  ")
		cb.WriteString(line)
		cb.WriteByte('\n')
	}
	cb.WriteByte('\n')
	m.coverCache = cb.String()
}

func (m *Model) rebuildMidCache() {
	w := m.effectiveWidth()

	var sb strings.Builder
	sb.Grow(256)

	elapsedStr := timeStyle.Render(util.FormatDuration(m.elapsed))
	durationStr := timeStyle.Render(util.FormatDuration(m.total))
	barWidth := w - len(util.FormatDuration(m.elapsed)) - len(util.FormatDuration(m.total)) - 6
	if barWidth < 10 {
		barWidth = 10
	}
	bar := renderProgressBar(m.elapsed.Seconds(), m.total.Seconds(), barWidth)
	sb.WriteString("  ")
	sb.WriteString(fmt.Sprintf("%s %s %s", elapsedStr, bar, durationStr))
	sb.WriteByte('\n')
	sb.WriteByte('\n')

	statusIcon, statusText := "▶", "playing"
	if m.mode != mixer.ModePlaying {
		statusIcon, statusText = "❚❚", "paused"
	}
	leftText := fmt.Sprintf("%s  %s", statusIcon, statusText)
	if ic := repeatIcon(m.repeatMode); ic != "" {
		leftText += "  " + ic
	}
	if lbl := speedLabel(speedSteps[m.speedIdx]); lbl != "" {
		leftText += "  " + lbl
	}
	if ic := shuffleIcon(m.shuffle); ic != "" {
		leftText += "  " + ic
	}
	if m.vizEnabled && m.vizIndex < len(m.visualizers) {
		leftText += "  viz:" + m.visualizers[m.vizIndex].Name()
	}
	volStr := renderVolumePercent(m.volume, m.muted)
	statusLeft := statusStyle.Render(leftText)
	statusRight := statusStyle.Render(volStr)
	gap := w - lipgloss.Width(leftText) - lipgloss.Width(volStr) - 4
	if gap < 2 {
		gap = 2
	}
	sb.WriteString("  ")
	sb.WriteString(statusLeft)
	sb.WriteString(spaces(gap))
	sb.WriteString(statusRight)
	sb.WriteByte('\n')

	if m.searching {
		sb.WriteByte('\n')
		sb.WriteString("  ")
		sb.WriteString(helpStyle.Render("search:"))
		sb.WriteByte(' ')
		sb.WriteString(m.searchInput.View())
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	m.midCache = sb.String()
}

func (m *Model) rebuildBottomCache() {
	var sb strings.Builder
	sb.Grow(256)

	if len(m.filter) > 1 {
		sb.WriteString(headerStyle.Render("  PLAYLIST"))
		sb.WriteByte('\n')
		sb.WriteString(m.songList.View())
		sb.WriteByte('\n')
	}

	m.keys.updateEnabled(len(m.songs) > 1)
	sb.WriteByte('\n')
	helpView := m.help.View(m.keys)
	for i, line := range strings.Split(helpView, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("  ")
		sb.WriteString(line)
	}
	sb.WriteByte('\n')
	m.bottomCache = sb.String()
}

func (m Model) shutdown() tea.Cmd {
	plane := m.plane
	return func() tea.Msg {
		plane.Quit()
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.handleMsg(msg)
	m.flushCaches()
	return m, cmd
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		if isQuit(msg) {
			m.quitting = true
			return m, m.shutdown()
		}
		return m.handleKey(msg)

	case tickMsg:
		m.refreshSnapshot()
		m.invalidate(dirtyMid | dirtyList)
		return m, tickCmd()

	case controlEventMsg:
		switch msg.event {
		case control.EventMetadataChanged:
			m.refreshSnapshot()
			m.invalidate(dirtyHeader | dirtyList)
			return m, waitForEvent(m.plane, msg.event)
		case control.EventPlaybackStatusChanged, control.EventVolumeChanged, control.EventSeeked:
			m.refreshSnapshot()
			m.invalidate(dirtyMid | dirtyList)
			return m, waitForEvent(m.plane, msg.event)
		case control.EventLoopStatusChanged:
			m.refreshSnapshot()
			m.invalidate(dirtyMid)
			return m, waitForEvent(m.plane, msg.event)
		}
		return m, waitForEvent(m.plane, msg.event)

	case vizTickMsg:
		if m.vizEnabled && m.vizIndex < len(m.visualizers) {
			scope := m.plane.GetScope(2048)
			h := m.vizHeight()
			m.visualizers[m.vizIndex].Update(scope, m.effectiveWidth(), h)
			view := m.visualizers[m.vizIndex].View()
			if view != "" {
				var sb strings.Builder
				for _, line := range strings.Split(view, "\n") {
					sb.WriteString("  ")
					sb.WriteString(line)
					sb.WriteByte('\n')
				}
				sb.WriteByte('\n')
				m.vizCache = sb.String()
			} else {
				m.vizCache = ""
			}
			return m, vizTickCmd()
		}
		return m, nil

	case planeQuitMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.songList.SetWidth(msg.Width - 4)
		m.updateListHeight()
		m.invalidate(dirtyHeader | dirtyMid | dirtyList | dirtyBottom)
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.plane.Search("")
		m.invalidate(dirtyMid | dirtyList)
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.invalidate(dirtyMid | dirtyList)
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.plane.Search(m.searchInput.Value())
	m.invalidate(dirtyMid | dirtyList)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.plane.TogglePause()
	case "left", "h":
		_ = m.plane.SeekRel(-5000)
	case "right", "l":
		_ = m.plane.SeekRel(5000)
	case "+", "=":
		m.plane.VolumeBump(0.05)
	case "-":
		m.plane.VolumeBump(-0.05)
	case "m":
		m.plane.ToggleMute()
	case "r":
		m.plane.CycleRepeat(true)
	case "z":
		if len(m.songs) > 1 {
			m.plane.ToggleShuffle()
		}
	case "x":
		m.speedIdx = (m.speedIdx + 1) % len(speedSteps)
		mult := speedSteps[m.speedIdx]
		if mult == 1.0 {
			_ = m.plane.RestoreRate()
		} else {
			native := m.plane.GetNativeRate()
			_ = m.plane.SetRate(int(float64(native)*mult), false)
		}
		m.invalidate(dirtyMid)
	case "v":
		if !m.vizEnabled {
			m.vizEnabled = true
			m.vizIndex = 0
			m.updateListHeight()
			m.invalidate(dirtyMid | dirtyList)
			return m, vizTickCmd()
		}
		m.vizIndex++
		if m.vizIndex >= len(m.visualizers) {
			m.vizEnabled = false
			m.vizIndex = 0
			m.vizCache = ""
			m.updateListHeight()
		}
		m.invalidate(dirtyMid | dirtyList)
		return m, nil
	case "n":
		_ = m.plane.Next()
	case "N", "p":
		_ = m.plane.Prev()
	case "j", "down":
		m.plane.FocusNext()
		m.invalidate(dirtyList)
	case "k", "up":
		m.plane.FocusPrev()
		m.invalidate(dirtyList)
	case "enter":
		if len(m.filter) > 0 {
			_ = m.plane.Play(m.plane.GetFocusedIndex())
		}
	case "/":
		m.searching = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.invalidate(dirtyMid | dirtyList)
		return m, textinput.Blink
	case "?":
		m.help.ShowAll = !m.help.ShowAll
		m.invalidate(dirtyBottom)
	}
	return m, nil
}

func (m Model) effectiveWidth() int {
	w := m.width
	if w < 30 {
		w = 50
	}
	return w - 4
}

// fixedLines approximates header+mid+help line count for sizing the list
// and visualizer; long titles may wrap for one or two extra lines.
func (m Model) fixedLines() int {
	return 13
}

func (m Model) vizHeight() int {
	avail := m.height - m.fixedLines()
	if len(m.filter) > 1 {
		avail = avail / 2
	}
	if avail < 2 {
		avail = 2
	}
	if avail > maxVizHeight {
		avail = maxVizHeight
	}
	return avail
}

func (m *Model) updateListHeight() {
	avail := m.height - m.fixedLines()
	if m.vizEnabled {
		avail -= m.vizHeight() + 1
	}
	if avail < 6 {
		avail = 6
	}
	m.songList.SetHeight(avail)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	view := m.headerCache + m.coverCache + m.midCache + m.vizCache + m.bottomCache
	if m.height <= 0 {
		return view
	}
	lines := lipgloss.Height(view)
	if lines >= m.height {
		return view
	}
	return view + strings.Repeat("\n", m.height-lines)
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " — climp"
	}
	return "▶ " + title + " — climp"
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
