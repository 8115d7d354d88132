// Package help renders the key bindings, palette commands and the icon
// legend in a scrollable panel.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
	"github.com/nhle/notifier/internal/ui/alert"
	"github.com/nhle/notifier/internal/ui/command"
)

// Model is the help view.
type Model struct {
	keys      *keys.KeyMap
	alertKeys alert.KeyMap
	help      help.Model
	viewport  viewport.Model
	width     int
	height    int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true

	m := Model{
		keys:      keys,
		alertKeys: alert.DefaultKeyMap(),
		help:      h,
		viewport:  viewport.New(width, height),
	}
	m.SetSize(width, height)
	return m
}

// Update scrolls the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Down):
			m.viewport.ScrollDown(1)
			return m, nil
		case key.Matches(k, m.keys.Up):
			m.viewport.ScrollUp(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the help panel.
func (m Model) View() string {
	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(m.viewport.View())
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 20)
	m.viewport.Width = max(width-8, 20)
	m.viewport.Height = max(height-6, 3)
	m.viewport.SetContent(m.content())
}

func (m Model) content() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue).
		MarginTop(1)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		sectionStyle.Render("Important notifications popup"),
		m.help.View(m.alertKeys),
		sectionStyle.Render("Commands (press :)"),
		commandList(),
		sectionStyle.Render("Icons"),
		legend(),
	)
}

func commandList() string {
	var b strings.Builder
	for _, c := range command.Known {
		fmt.Fprintf(&b, "%-10s %s\n", c.Name, theme.HelpStyle.Render(c.Desc))
	}
	return strings.TrimRight(b.String(), "\n")
}

func legend() string {
	samples := []struct {
		n    model.Notification
		desc string
	}{
		{model.Notification{Priority: model.PriorityUrgent}, "urgent"},
		{model.Notification{Priority: model.PriorityHigh}, "high priority"},
		{model.Notification{Type: model.TypeExitConfirmed, Priority: model.PriorityLow}, "exit confirmed"},
		{model.Notification{Type: model.TypeGeneral, Priority: model.PriorityLow}, "everything else"},
	}

	lines := make([]string, 0, len(samples)+1)
	for _, s := range samples {
		icon, style := theme.Icon(s.n)
		lines = append(lines, style.Render(icon)+"  "+s.desc)
	}
	lines = append(lines, "●  unread")
	return strings.Join(lines, "\n")
}
