package inboxlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
	"github.com/nhle/notifier/internal/ui"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Title + " " + i.Notification.Message
}

// Title returns the notification title for the list.
func (i Item) Title() string { return i.Notification.Title }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	parts := []string{
		i.Notification.Type.Label(),
		string(i.Notification.Status),
		ui.RelativeTime(i.Notification.CreatedAt, time.Now()),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering notifications.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	icon, iconStyle := theme.Icon(n)

	marker := " "
	if n.IsUnread() {
		marker = "●"
	}

	typeBadge := theme.TypeLabelStyle(n.Type).Render(n.Type.Label())
	priBadge := theme.PriorityStyle(n.Priority).Render(priorityLabel(n.Priority))
	statusBadge := theme.StatusStyle(n.Status).Render(string(n.Status))

	title := n.Title
	if n.IsUnread() {
		title = theme.UnreadTitleStyle.Render(title)
	} else {
		title = theme.ReadTitleStyle.Render(title)
	}

	now := time.Now
	if d.now != nil {
		now = d.now
	}
	timeStr := theme.HelpStyle.Render(ui.RelativeTime(n.CreatedAt, now()))

	link := ""
	if n.ActionURL() != "" {
		link = theme.HelpStyle.Render(" ↗")
	}

	line := fmt.Sprintf(
		"%s %s %s %s %s %s%s  %s",
		marker, iconStyle.Render(icon), priBadge, typeBadge, statusBadge, title, link, timeStr,
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	case model.PriorityLow:
		return "P4"
	default:
		return "P?"
	}
}
