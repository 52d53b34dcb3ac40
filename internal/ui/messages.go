package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/climp/internal/control"
)

type tickMsg time.Time
type vizTickMsg time.Time

// planeQuitMsg arrives once the Control Plane's Done() channel closes,
// i.e. once the quit command (from any source — this UI, the
// Remote-Control Adapter, or a repeat_mode=NONE run-out) has finished
// cleanup.
type planeQuitMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func vizTickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return vizTickMsg(t)
	})
}

func waitForQuit(p *control.Plane) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return planeQuitMsg{}
	}
}

// controlEventMsg arrives when one of the Control Plane's coalesced
// notification channels fires; the handler re-arms waitForEvent for the
// same kind so the UI keeps listening.
type controlEventMsg struct{ event control.Event }

func waitForEvent(p *control.Plane, e control.Event) tea.Cmd {
	return func() tea.Msg {
		<-p.Notifications(e)
		return controlEventMsg{event: e}
	}
}
