package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/theme"
)

// Command names understood by the app.
const (
	Compose  = "compose"
	ReadAll  = "read-all"
	Unread   = "unread"
	All      = "all"
	Settings = "settings"
	Help     = "help"
	Quit     = "quit"
)

// Known lists the commands with a one-line description, in display order.
var Known = []struct {
	Name string
	Desc string
}{
	{Compose, "send a new notification"},
	{ReadAll, "mark every unread notification read"},
	{Unread, "show only unread notifications"},
	{All, "show all notifications"},
	{Settings, "show and edit settings"},
	{Help, "show keyboard shortcuts"},
	{Quit, "exit"},
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Args []string
}

// Parse splits a command line into a CommandMsg. Names are matched by
// unique prefix, so "comp" runs compose.
func Parse(line string) (CommandMsg, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	name := strings.ToLower(fields[0])
	var matches []string
	for _, k := range Known {
		if k.Name == name {
			matches = []string{k.Name}
			break
		}
		if strings.HasPrefix(k.Name, name) {
			matches = append(matches, k.Name)
		}
	}

	switch len(matches) {
	case 0:
		return CommandMsg{}, fmt.Errorf("unknown command %q", name)
	case 1:
		return CommandMsg{Name: matches[0], Args: fields[1:]}, nil
	default:
		return CommandMsg{}, fmt.Errorf("ambiguous command %q: %s", name, strings.Join(matches, ", "))
	}
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	names := make([]string, len(Known))
	for i, k := range Known {
		names[i] = k.Name
	}
	ti.SetSuggestions(names)
	ti.ShowSuggestions = true

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}

		cmd, err := Parse(line)
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil
		m.input.Reset()
		return m, func() tea.Msg {
			return cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	lines := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		lines = append(lines, theme.ErrorStyle.Render(m.err.Error()))
	}

	lines = append(lines, "")
	for _, k := range Known {
		lines = append(lines, theme.HelpStyle.Render(fmt.Sprintf("%-10s %s", k.Name, k.Desc)))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.err = nil
	m.input.Reset()
	return m.input.Focus()
}
