package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/cycleworks/cyclegate/internal/events"
)

// Trigger display statuses.
const (
	StatusWaiting   = "waiting"
	StatusPolling   = "polling"
	StatusSatisfied = "satisfied"
	StatusTimedOut  = "timed out"
	StatusError     = "error"
)

// TriggerState is the monitor's view of one polled trigger.
type TriggerState struct {
	Label    string
	Status   string
	Attempts int
	Attrs    map[string]string
	Err      error
	LastPoll time.Time
}

// TriggerPaneModel shows the trigger list with a detail viewport for the
// selected trigger's attributes.
type TriggerPaneModel struct {
	triggers    map[string]*TriggerState
	order       []string // insertion order for display
	selectedIdx int
	detail      viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTriggerPaneModel creates a new trigger pane model.
func NewTriggerPaneModel() TriggerPaneModel {
	return TriggerPaneModel{
		triggers: make(map[string]*TriggerState),
		detail:   viewport.New(0, 0),
		focused:  true,
	}
}

// Update handles messages for the trigger pane.
func (m TriggerPaneModel) Update(msg tea.Msg) (TriggerPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyJ:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.refreshDetail()
			}
		case KeyK:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.refreshDetail()
			}
		case KeyUp, KeyDown:
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case events.PollAttemptEvent:
		s := m.ensure(msg.Label)
		s.Status = StatusPolling
		s.Attempts = msg.Attempt
		s.Attrs = msg.Attrs
		s.LastPoll = msg.Timestamp
		m.refreshDetail()

	case events.TriggerSatisfiedEvent:
		s := m.ensure(msg.Label)
		s.Status = StatusSatisfied
		s.Attempts = msg.Attempts
		s.Attrs = msg.Attrs
		s.LastPoll = msg.Timestamp
		m.refreshDetail()

	case events.TriggerTimedOutEvent:
		s := m.ensure(msg.Label)
		s.Status = StatusTimedOut
		s.Attempts = msg.Attempts
		s.Attrs = msg.Attrs
		s.LastPoll = msg.Timestamp
		m.refreshDetail()

	case events.PollErrorEvent:
		s := m.ensure(msg.Label)
		s.Status = StatusError
		s.Err = msg.Err
		m.refreshDetail()
	}

	return m, nil
}

// ensure returns the state for a label, registering it on first sight.
func (m *TriggerPaneModel) ensure(label string) *TriggerState {
	if s, ok := m.triggers[label]; ok {
		return s
	}
	s := &TriggerState{Label: label, Status: StatusWaiting}
	m.triggers[label] = s
	m.order = append(m.order, label)
	return s
}

// refreshDetail rebuilds the detail viewport for the selected trigger.
func (m *TriggerPaneModel) refreshDetail() {
	s := m.selected()
	if s == nil {
		m.detail.SetContent("")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", StyleTitle.Render(s.Label))
	fmt.Fprintf(&b, "status:   %s\n", s.Status)
	fmt.Fprintf(&b, "attempts: %d\n", s.Attempts)
	if !s.LastPoll.IsZero() {
		fmt.Fprintf(&b, "last:     %s\n", s.LastPoll.Format(time.TimeOnly))
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "error:    %v\n", s.Err)
	}
	if len(s.Attrs) > 0 {
		b.WriteString("\nattributes:\n")
		keys := make([]string, 0, len(s.Attrs))
		for k := range s.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %-12s %s\n", k, s.Attrs[k])
		}
	}
	m.detail.SetContent(b.String())
}

func (m *TriggerPaneModel) selected() *TriggerState {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.order) {
		return nil
	}
	return m.triggers[m.order[m.selectedIdx]]
}

// View renders the trigger list beside the detail viewport.
func (m TriggerPaneModel) View() string {
	var list strings.Builder
	for i, label := range m.order {
		s := m.triggers[label]
		line := fmt.Sprintf("%s %s", statusGlyph(s.Status), label)
		if i == m.selectedIdx {
			line = StyleSelected.Render("> " + line)
		} else {
			line = "  " + line
		}
		list.WriteString(line + "\n")
	}
	if len(m.order) == 0 {
		list.WriteString("no triggers polled yet")
	}

	border := StyleUnfocusedBorder
	if m.focused {
		border = StyleFocusedBorder
	}

	listWidth := m.width/3 - 2
	if listWidth < 10 {
		listWidth = 10
	}
	left := border.Width(listWidth).Height(m.height - 2).Render(list.String())
	right := border.Width(m.width - listWidth - 4).Height(m.height - 2).Render(m.detail.View())
	return joinHorizontal(left, right)
}

// statusGlyph maps a status to its styled marker.
func statusGlyph(status string) string {
	switch status {
	case StatusSatisfied:
		return StyleSatisfied.Render("+")
	case StatusTimedOut:
		return StyleTimedOut.Render("!")
	case StatusError:
		return StyleError.Render("x")
	case StatusPolling:
		return StylePolling.Render("~")
	default:
		return StyleHelp.Render(".")
	}
}

// SetSize updates the pane dimensions.
func (m *TriggerPaneModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.detail.Width = width - width/3 - 6
	m.detail.Height = height - 4
}

// SetFocused updates the focus state.
func (m *TriggerPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// Counts returns how many triggers are in each terminal state.
func (m TriggerPaneModel) Counts() (polling, satisfied, timedOut, failed int) {
	for _, s := range m.triggers {
		switch s.Status {
		case StatusSatisfied:
			satisfied++
		case StatusTimedOut:
			timedOut++
		case StatusError:
			failed++
		default:
			polling++
		}
	}
	return
}
