// Package alert shows a modal for unread high and urgent notifications.
//
// The modal opens at most once per notification per session: every
// notification it opens for is remembered, and later deliveries of the
// same notifications never reopen it. It is closed only by the user; with
// nothing to show it renders nothing.
package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/navigate"
	"github.com/nhle/notifier/internal/theme"
	"github.com/nhle/notifier/internal/ui"
)

// MaxVisible is the number of notifications listed before the overflow line.
const MaxVisible = 3

const mutationTimeout = 10 * time.Second

// NotificationsMsg carries the current inbox list, newest first.
type NotificationsMsg struct {
	Notifications []model.Notification
}

// MarkedReadMsg is sent once a mark-read request issued by the modal returns.
type MarkedReadMsg struct {
	ID string
}

// NavigatedMsg is sent after an action link was handed to the navigator.
type NavigatedMsg struct {
	URL string
	Err error
}

// Reader marks notifications read.
type Reader interface {
	MarkAsRead(ctx context.Context, id string)
}

// KeyMap holds the modal's bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	MarkRead key.Binding
	Follow   key.Binding
	MarkAll  key.Binding
	Close    key.Binding
}

// DefaultKeyMap returns the modal's default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "mark read"),
		),
		Follow: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open link"),
		),
		MarkAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "mark all read"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "close"),
		),
	}
}

// ShortHelp returns the modal's bindings for the compact help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MarkRead, k.Follow, k.MarkAll, k.Close}
}

// FullHelp returns the modal's bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, k.ShortHelp()}
}

// Model is the alert modal.
type Model struct {
	reader Reader
	nav    navigate.Navigator
	keys   KeyMap
	now    func() time.Time

	open      bool
	shown     map[string]struct{}
	attention []model.Notification
	cursor    int
	width     int
}

// New creates a closed modal with an empty shown set.
func New(r Reader, nav navigate.Navigator) Model {
	return Model{
		reader: r,
		nav:    nav,
		keys:   DefaultKeyMap(),
		now:    time.Now,
		shown:  make(map[string]struct{}),
		width:  60,
	}
}

// WithClock returns m using now for relative timestamps.
func (m Model) WithClock(now func() time.Time) Model {
	m.now = now
	return m
}

// SetWidth sets the rendered width of the modal.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// Open reports whether the user has not dismissed the modal yet.
func (m Model) Open() bool { return m.open }

// Visible reports whether the modal renders anything.
func (m Model) Visible() bool {
	return m.open && len(m.attention) > 0
}

// WasShown reports whether the modal has opened for id this session.
func (m Model) WasShown(id string) bool {
	_, ok := m.shown[id]
	return ok
}

// Attention returns the unread high and urgent notifications in list order.
func (m Model) Attention() []model.Notification {
	return append([]model.Notification(nil), m.attention...)
}

// Update handles new lists and, while visible, key presses.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationsMsg:
		wasVisible := m.Visible()
		m.attention = needingAttention(msg.Notifications)
		m.clampCursor()
		m.trigger(wasVisible)
		return m, nil

	case NavigatedMsg:
		if msg.Err != nil {
			log.Printf("[WARN] opening %s: %v", msg.URL, msg.Err)
		}
		return m, nil

	case tea.KeyMsg:
		if !m.Visible() {
			return m, nil
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

// trigger opens the modal when the list holds attention notifications it
// has never opened for. A modal that was on screen is left alone; one
// that is open but had nothing to show counts as closed, so its next
// arrival is recorded as shown.
func (m *Model) trigger(wasVisible bool) {
	if m.open && wasVisible {
		return
	}

	var fresh []string
	for _, n := range m.attention {
		if !m.WasShown(n.ID) {
			fresh = append(fresh, n.ID)
		}
	}
	if len(fresh) == 0 {
		return
	}

	m.open = true
	m.cursor = 0
	for _, id := range fresh {
		m.shown[id] = struct{}{}
	}
}

// close hides the modal. Notifications that arrived while it was open and
// were never opened for get their own showing.
func (m *Model) close() {
	m.open = false
	m.cursor = 0
	m.trigger(false)
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	visible := m.visible()

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		return m, m.markRead(visible[m.cursor].ID)

	case key.Matches(msg, m.keys.Follow):
		url := visible[m.cursor].ActionURL()
		if url == "" {
			return m, nil
		}
		m.close()
		return m, m.follow(url)

	case key.Matches(msg, m.keys.MarkAll):
		cmds := make([]tea.Cmd, 0, len(m.attention))
		for _, n := range m.attention {
			cmds = append(cmds, m.markRead(n.ID))
		}
		m.close()
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.Close):
		m.close()
		return m, nil
	}
	return m, nil
}

func (m Model) markRead(id string) tea.Cmd {
	r := m.reader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		r.MarkAsRead(ctx, id)
		return MarkedReadMsg{ID: id}
	}
}

func (m Model) follow(url string) tea.Cmd {
	nav := m.nav
	return func() tea.Msg {
		return NavigatedMsg{URL: url, Err: nav.Open(url)}
	}
}

func (m Model) visible() []model.Notification {
	if len(m.attention) > MaxVisible {
		return m.attention[:MaxVisible]
	}
	return m.attention
}

func (m *Model) clampCursor() {
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// View renders the modal, or nothing when it is closed or empty.
func (m Model) View() string {
	if !m.Visible() {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.ModalTitleStyle.Render("Important notifications"))
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(
		fmt.Sprintf("You have %d important notification(s)", len(m.attention))))
	b.WriteString("\n\n")

	now := m.now()
	for idx, n := range m.visible() {
		b.WriteString(m.renderItem(n, idx == m.cursor, now))
		b.WriteString("\n")
	}

	if more := len(m.attention) - MaxVisible; more > 0 {
		b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("...and %d more", more)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		theme.ButtonStyle.Render("esc close"),
		" ",
		theme.ButtonStyle.Render("A mark all as read"),
	))

	return theme.ModalStyle.Width(m.width).Render(b.String())
}

func (m Model) renderItem(n model.Notification, selected bool, now time.Time) string {
	icon, iconStyle := theme.Icon(n)

	cursor := "  "
	titleStyle := theme.UnreadTitleStyle
	if selected {
		cursor = "› "
		titleStyle = titleStyle.Foreground(theme.ColorBlue)
	}

	header := cursor + iconStyle.Render(icon) + " " + titleStyle.Render(n.Title)
	lines := []string{header}
	if n.Message != "" {
		lines = append(lines, "    "+n.Message)
	}

	meta := "    " + theme.PriorityStyle(n.Priority).Render(string(n.Priority))
	if rel := ui.RelativeTime(n.CreatedAt, now); rel != "" {
		meta += theme.HelpStyle.Render(" · " + rel)
	}
	if n.ActionURL() != "" {
		meta += "  " + theme.ButtonStyle.Render("↗ action")
	}
	lines = append(lines, meta)

	if selected {
		controls := "    " + theme.HelpStyle.Render("[r] mark read")
		if n.ActionURL() != "" {
			controls += theme.HelpStyle.Render("  [enter] open link")
		}
		lines = append(lines, controls)
	}

	return strings.Join(lines, "\n")
}

func needingAttention(list []model.Notification) []model.Notification {
	var out []model.Notification
	for _, n := range list {
		if n.NeedsAttention() {
			out = append(out, n)
		}
	}
	return out
}
