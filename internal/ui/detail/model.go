package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
	"github.com/nhle/notifier/internal/ui"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Actions the detail view can request.
const (
	ActionMarkRead    = "mark-read"
	ActionAcknowledge = "acknowledge"
	ActionDismiss     = "dismiss"
	ActionOpenLink    = "open-link"
)

// ActionMsg signals the parent to execute an action on the current
// notification. URL is set for ActionOpenLink.
type ActionMsg struct {
	Action string
	ID     string
	URL    string
}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	gone         bool
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg {
				return BackMsg{}
			}
		}

		if m.notification != nil && !m.gone {
			n := *m.notification
			switch {
			case key.Matches(msg, m.keys.MarkRead):
				return m, action(ActionMarkRead, n)
			case key.Matches(msg, m.keys.Acknowledge):
				return m, action(ActionAcknowledge, n)
			case key.Matches(msg, m.keys.Dismiss):
				return m, action(ActionDismiss, n)
			case key.Matches(msg, m.keys.OpenAction):
				if n.ActionURL() == "" {
					return m, nil
				}
				return m, action(ActionOpenLink, n)
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func action(name string, n model.Notification) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: name, ID: n.ID, URL: n.ActionURL()}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No notification selected")
	}

	return m.viewport.View()
}

// ID returns the ID of the displayed notification, or "".
func (m Model) ID() string {
	if m.notification == nil {
		return ""
	}
	return m.notification.ID
}

// SetNotification shows n from the top.
func (m *Model) SetNotification(n model.Notification) {
	m.notification = &n
	m.gone = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders from the latest list. A notification that is no longer
// in the list is shown as dismissed.
func (m *Model) Refresh(list []model.Notification) {
	if m.notification == nil {
		return
	}

	m.gone = true
	for _, n := range list {
		if n.ID == m.notification.ID {
			n := n
			m.notification = &n
			m.gone = false
			break
		}
	}
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	now := time.Now()
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	icon, iconStyle := theme.Icon(*n)
	sections = append(sections, iconStyle.Render(icon)+" "+titleStyle.Render(n.Title))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.TypeLabelStyle(n.Type).Render(n.Type.Label()), "  ",
		theme.StatusStyle(n.Status).Render(string(n.Status)), "  ",
		theme.PriorityStyle(n.Priority).Render(string(n.Priority)),
	)
	sections = append(sections, badgeLine)

	if m.gone {
		sections = append(sections, "", theme.ErrorStyle.Render("This notification has been dismissed."))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			metaStyle.Render(fmt.Sprintf("%-13s", label+":")),
			valStyle.Render(value),
		))
	}

	row("Created", stamp(n.CreatedAt, now))
	if n.ReadAt != nil {
		row("Read", stamp(*n.ReadAt, now))
	}
	if n.AcknowledgedAt != nil {
		row("Acknowledged", stamp(*n.AcknowledgedAt, now))
	}
	row("Group", n.RecipientGroupID)

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	body := n.Message
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	}
	sections = append(sections, body)

	if a := n.Action; a != nil && !a.Empty() {
		sections = append(sections, "", separator, "")
		sections = append(sections, lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			Render("Action"))
		sections = append(sections, "")

		worker := a.WorkerName
		if a.WorkerCIN != "" {
			worker = strings.TrimSpace(fmt.Sprintf("%s (%s)", worker, a.WorkerCIN))
		}
		row("Worker", worker)
		row("Requested by", a.RequesterGroupName)
		row("Required", a.ActionRequired)
		row("Link", a.ActionURL)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func stamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), ui.RelativeTime(t, now))
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
