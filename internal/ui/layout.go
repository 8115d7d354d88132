package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar: title on the left, the
// session status on the right. The status is dropped first when the
// terminal is too narrow for both.
func (l Layout) RenderHeader(title string, status string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(status)

	if lipgloss.Width(left)+lipgloss.Width(right) > l.Width {
		right = ""
	}
	return fillBar(theme.HeaderStyle, l.Width, left, right)
}

// RenderStatusBar renders the bottom status bar with keyboard hints,
// cut to the terminal width.
func (l Layout) RenderStatusBar(hints string) string {
	left := theme.StatusBarStyle.MaxWidth(max(l.Width, 0)).Render(hints)
	return fillBar(theme.StatusBarStyle, l.Width, left, "")
}

// fillBar joins left and right with a gap in the bar's background so the
// bar spans width.
func fillBar(style lipgloss.Style, width int, left, right string) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// Overlay centres a modal over the content area. The content is replaced
// while the modal is up; the terminal has no layers to blend.
func (l Layout) Overlay(modal string) string {
	return lipgloss.Place(
		l.ContentWidth(),
		l.ContentHeight(),
		lipgloss.Center,
		lipgloss.Center,
		modal,
	)
}

// ModalWidth returns a width for popups that fits the terminal.
func (l Layout) ModalWidth() int {
	return min(max(l.Width-8, 30), 72)
}
