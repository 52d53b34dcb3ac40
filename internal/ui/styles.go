package ui

import "github.com/charmbracelet/lipgloss"

// Style palette for the player's text chrome (title/metadata/status/help);
// the visualizer panel (internal/visualizer) renders its own ANSI/truecolor
// output directly and doesn't go through lipgloss styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})

	artistStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#AAAAAA"})

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})

	// helpStyle also labels the inline search prompt, since both are
	// secondary chrome next to the primary now-playing/status lines.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})

	// headerStyle marks section labels — currently just "PLAYLIST" above
	// the filtered song list.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"})
)
