// Package compose is the form for sending a new notification.
package compose

import (
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
)

// SubmittedMsg is dispatched when the form is completed.
type SubmittedMsg struct {
	Draft model.Draft
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	recipient  string
	group      string
	title      string
	message    string
	kind       model.Type
	priority   model.Priority
	workerName string
	actionURL  string
}

// Model is the Bubble Tea model for the compose form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new compose form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the form. recipient pre-fills the recipient field.
func (m *Model) Start(recipient string) tea.Cmd {
	*m.fb = formBindings{
		recipient: recipient,
		kind:      model.TypeGeneral,
		priority:  model.PriorityMedium,
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Notification") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	typeOpts := make([]huh.Option[model.Type], len(model.Types))
	for i, t := range model.Types {
		typeOpts[i] = huh.NewOption(t.Label(), t)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recipient").
				Placeholder("user ID").
				Value(&m.fb.recipient).
				Validate(validateRequired("Recipient")),
			huh.NewInput().
				Title("Group").
				Placeholder("recipient's group (optional)").
				Value(&m.fb.group),
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Message").
				Value(&m.fb.message).
				Validate(validateRequired("Message")),
		),
		huh.NewGroup(
			huh.NewSelect[model.Type]().
				Title("Type").
				Options(typeOpts...).
				Value(&m.fb.kind),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("Urgent", model.PriorityUrgent),
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Medium", model.PriorityMedium),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Worker").
				Placeholder("worker name (optional)").
				Value(&m.fb.workerName),
			huh.NewInput().
				Title("Action link").
				Placeholder("https://... (optional)").
				Value(&m.fb.actionURL).
				Validate(validateOptionalURL),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	d := m.fb.draft()
	return func() tea.Msg { return SubmittedMsg{Draft: d} }
}

func (fb formBindings) draft() model.Draft {
	d := model.Draft{
		Type:             fb.kind,
		Title:            strings.TrimSpace(fb.title),
		Message:          strings.TrimSpace(fb.message),
		RecipientID:      strings.TrimSpace(fb.recipient),
		RecipientGroupID: strings.TrimSpace(fb.group),
		Priority:         fb.priority,
	}
	action := model.ActionData{
		WorkerName: strings.TrimSpace(fb.workerName),
		ActionURL:  strings.TrimSpace(fb.actionURL),
	}
	if !action.Empty() {
		d.Action = &action
	}
	return d
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http(s) link")
	}
	return nil
}
