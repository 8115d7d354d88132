// Package inboxlist is the main notification list view.
package inboxlist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
)

// SelectedMsg is sent when the user opens a notification's detail.
type SelectedMsg struct {
	ID string
}

// MarkReadMsg asks for a notification to be marked read.
type MarkReadMsg struct {
	ID string
}

// AcknowledgeMsg asks for a notification to be acknowledged.
type AcknowledgeMsg struct {
	ID string
}

// DismissMsg asks for a notification to be deleted.
type DismissMsg struct {
	ID string
}

// MarkAllReadMsg asks for every unread notification to be marked read.
type MarkAllReadMsg struct{}

// OpenActionMsg asks for a notification's action link to be opened.
type OpenActionMsg struct {
	URL string
}

// Model is the notification list view component.
type Model struct {
	list          list.Model
	keys          *keys.KeyMap
	notifications []model.Notification
	unreadOnly    bool
	query         string
	loading       bool
	searchMode    bool
	searchInput   textinput.Model
	width         int
	height        int
}

// New creates a new notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetNotifications replaces the listed notifications, keeping the
// selection on the same notification when it is still present.
func (m *Model) SetNotifications(list []model.Notification, loading bool) tea.Cmd {
	m.notifications = list
	m.loading = loading
	return m.refresh()
}

// SetUnreadOnly shows only unread notifications when on.
func (m *Model) SetUnreadOnly(on bool) tea.Cmd {
	m.unreadOnly = on
	return m.refresh()
}

// UnreadOnly reports whether read notifications are hidden.
func (m Model) UnreadOnly() bool { return m.unreadOnly }

// Searching reports whether the search input has focus.
func (m Model) Searching() bool { return m.searchMode }

// Selected returns the highlighted notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Visible returns the notifications currently listed.
func (m Model) Visible() []model.Notification {
	items := m.list.Items()
	out := make([]model.Notification, 0, len(items))
	for _, it := range items {
		if ni, ok := it.(Item); ok {
			out = append(out, ni.Notification)
		}
	}
	return out
}

// refresh rebuilds the list items from the current filters.
func (m *Model) refresh() tea.Cmd {
	selectedID := ""
	if n, ok := m.Selected(); ok {
		selectedID = n.ID
	}

	query := strings.ToLower(m.query)
	items := make([]list.Item, 0, len(m.notifications))
	selected := 0
	for _, n := range m.notifications {
		if m.unreadOnly && !n.IsUnread() {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(n.Title+" "+n.Message), query) {
			continue
		}
		if n.ID == selectedID {
			selected = len(items)
		}
		items = append(items, Item{Notification: n})
	}

	cmd := m.list.SetItems(items)
	m.list.Select(selected)
	return cmd
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		return m, m.refresh()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.ToggleUnread):
		return m, m.SetUnreadOnly(!m.unreadOnly)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, emit(MarkAllReadMsg{})
	}

	n, ok := m.Selected()
	if ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			return m, emit(SelectedMsg{ID: n.ID})
		case key.Matches(msg, m.keys.MarkRead):
			return m, emit(MarkReadMsg{ID: n.ID})
		case key.Matches(msg, m.keys.Acknowledge):
			return m, emit(AcknowledgeMsg{ID: n.ID})
		case key.Matches(msg, m.keys.Dismiss):
			return m, emit(DismissMsg{ID: n.ID})
		case key.Matches(msg, m.keys.OpenAction):
			if url := n.ActionURL(); url != "" {
				return m, emit(OpenActionMsg{URL: url})
			}
			return m, nil
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return style.Render("Loading notifications...")
	case m.unreadOnly || m.query != "":
		return style.Render("No matching notifications.\nPress u to show read ones too.")
	default:
		return style.Render("No notifications.\n\nPress n to send one.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
