package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ModalStyle frames the important-notifications popup.
var ModalStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.ThickBorder()).
	BorderForeground(ColorOrange)

// ModalTitleStyle is the popup heading.
var ModalTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorOrange)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// UnreadTitleStyle marks titles of unread notifications.
var UnreadTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// ReadTitleStyle dims titles of read notifications.
var ReadTitleStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ButtonStyle renders an action control.
var ButtonStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for sync errors in the status bar.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// StatusStyle returns a color-coded style for a notification status.
func StatusStyle(status model.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.StatusUnread:
		return base.Foreground(ColorBlue)
	case model.StatusRead:
		return base.Foreground(ColorGray)
	case model.StatusAcknowledged:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a notification priority.
func PriorityStyle(priority model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case model.PriorityUrgent:
		return base.Foreground(ColorRed)
	case model.PriorityHigh:
		return base.Foreground(ColorOrange)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// TypeLabelStyle returns a color-coded style for a notification type label.
func TypeLabelStyle(t model.Type) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch t {
	case model.TypeDuplicateWorker:
		return base.Foreground(ColorMagenta)
	case model.TypeExitRequest:
		return base.Foreground(ColorOrange)
	case model.TypeExitConfirmed:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// Icon is the glyph shown next to a notification, chosen by urgency first
// and type second.
func Icon(n model.Notification) (string, lipgloss.Style) {
	switch {
	case n.Priority == model.PriorityUrgent:
		return "⚠", lipgloss.NewStyle().Foreground(ColorRed)
	case n.Priority == model.PriorityHigh:
		return "🔔", lipgloss.NewStyle().Foreground(ColorOrange)
	case n.Type == model.TypeExitConfirmed:
		return "✓", lipgloss.NewStyle().Foreground(ColorGreen)
	default:
		return "ℹ", lipgloss.NewStyle().Foreground(ColorBlue)
	}
}
