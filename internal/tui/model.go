package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cycleworks/cyclegate/internal/events"
)

// Model is the root Bubble Tea model for the trigger monitor.
type Model struct {
	pane     TriggerPaneModel
	eventSub <-chan events.Event
	suite    string
	width    int
	height   int
	quitting bool
}

// New creates a monitor model subscribed to the poll runner's event bus.
func New(bus *events.Bus, suite string) Model {
	return Model{
		pane:     NewTriggerPaneModel(),
		eventSub: bus.Subscribe(256),
		suite:    suite,
	}
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next poll event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.pane, cmd = m.pane.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pane.SetSize(m.width, m.height-2)

	case events.PollAttemptEvent, events.TriggerSatisfiedEvent,
		events.TriggerTimedOutEvent, events.PollErrorEvent:
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	polling, satisfied, timedOut, failed := m.pane.Counts()
	header := StyleTitle.Render(fmt.Sprintf("cyclegate monitor: %s", m.suite)) +
		StyleHelp.Render(fmt.Sprintf("  %d polling, %d satisfied, %d timed out, %d errors",
			polling, satisfied, timedOut, failed))

	return lipgloss.JoinVertical(lipgloss.Left, header, m.pane.View(), HelpView())
}

// joinHorizontal joins two rendered blocks side by side, top aligned.
func joinHorizontal(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
