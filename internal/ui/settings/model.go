// Package settings shows and edits the configuration file.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/logging"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeSummary  Mode = iota // Show the current settings
	ModeForm                 // Editing
	ModeChecking             // Probing the connectivity URL
	ModeResult               // Probe result
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg carries the configuration after it was written.
type SavedMsg struct {
	Config model.AppConfig
}

type probeResultMsg struct {
	url    string
	online bool
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	driver       string
	sqlitePath   string
	mongoDB      string
	firestoreID  string
	bus          string
	redisURL     string
	probeURL     string
	pollInterval string
	logLevel     string
	unreadOnly   bool
}

// Model is the settings view.
type Model struct {
	mode    Mode
	cfg     model.AppConfig
	path    string
	keys    *keys.KeyMap
	form    *huh.Form
	fb      *formBindings
	spinner spinner.Model
	online  bool
	err     error
	width   int
	height  int
}

// New creates a settings view for the configuration at path.
func New(cfg model.AppConfig, path string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:     cfg,
		path:    path,
		keys:    k,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open shows the summary.
func (m *Model) Open() {
	m.mode = ModeSummary
	m.err = nil
}

// Editing reports whether the edit form is taking input.
func (m Model) Editing() bool { return m.mode == ModeForm }

// Config returns the configuration the view was last saved with.
func (m Model) Config() model.AppConfig { return m.cfg }

// Update handles messages for the settings view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.mode == ModeChecking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case probeResultMsg:
		if m.mode == ModeChecking && msg.url == m.cfg.Connectivity.ProbeURL {
			m.online = msg.online
			m.mode = ModeResult
		}
		return m, nil
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case ModeSummary:
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg { return DoneMsg{} }
		case keyMsg.String() == "e":
			return m, m.startForm()
		case keyMsg.String() == "t":
			if m.cfg.Connectivity.ProbeURL == "" {
				m.err = fmt.Errorf("no probe URL configured")
				return m, nil
			}
			m.err = nil
			m.mode = ModeChecking
			return m, tea.Batch(m.spinner.Tick, m.probe())
		}

	case ModeChecking, ModeResult:
		if key.Matches(keyMsg, m.keys.Back) || keyMsg.String() == "enter" {
			m.mode = ModeSummary
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.save()
	case huh.StateAborted:
		m.mode = ModeSummary
		return m, nil
	}
	return m, cmd
}

func (m *Model) startForm() tea.Cmd {
	c := m.cfg
	*m.fb = formBindings{
		driver:       c.Backend.Driver,
		sqlitePath:   c.Backend.SQLitePath,
		mongoDB:      c.Backend.MongoDatabase,
		firestoreID:  c.Backend.FirestoreProject,
		bus:          c.Bus.Driver,
		redisURL:     c.Bus.RedisURL,
		probeURL:     c.Connectivity.ProbeURL,
		pollInterval: strconv.Itoa(c.Backend.PollIntervalSec),
		logLevel:     c.Log.Level,
		unreadOnly:   c.Display.UnreadOnly,
	}

	m.mode = ModeForm
	m.err = nil
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backend").
				Options(
					huh.NewOption("SQLite (this machine)", model.DriverSQLite),
					huh.NewOption("MongoDB", model.DriverMongo),
					huh.NewOption("Firestore", model.DriverFirestore),
				).
				Value(&m.fb.driver),
			huh.NewInput().Title("SQLite file").Value(&m.fb.sqlitePath),
			huh.NewInput().Title("Mongo database").Value(&m.fb.mongoDB),
			huh.NewInput().Title("Firestore project").Value(&m.fb.firestoreID),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Value(&m.fb.pollInterval).
				Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Change bus").
				Options(
					huh.NewOption("In process", model.BusLocal),
					huh.NewOption("Redis", model.BusRedis),
				).
				Value(&m.fb.bus),
			huh.NewInput().Title("Redis URL").Placeholder("redis://localhost:6379/0").Value(&m.fb.redisURL),
			huh.NewInput().Title("Connectivity probe URL").Placeholder("empty: always online").Value(&m.fb.probeURL),
			huh.NewSelect[string]().
				Title("Log level").
				Options(levelOptions()...).
				Value(&m.fb.logLevel),
			huh.NewConfirm().Title("Show unread only").Value(&m.fb.unreadOnly),
		),
	).WithWidth(min(max(m.width-4, 40), 100))

	return m.form.Init()
}

func levelOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(logging.Levels))
	for i, l := range logging.Levels {
		opts[i] = huh.NewOption(string(l), string(l))
	}
	return opts
}

// apply returns cfg with the form values.
func (fb formBindings) apply(cfg model.AppConfig) model.AppConfig {
	cfg.Backend.Driver = fb.driver
	cfg.Backend.SQLitePath = strings.TrimSpace(fb.sqlitePath)
	cfg.Backend.MongoDatabase = strings.TrimSpace(fb.mongoDB)
	cfg.Backend.FirestoreProject = strings.TrimSpace(fb.firestoreID)
	if n, err := strconv.Atoi(strings.TrimSpace(fb.pollInterval)); err == nil {
		cfg.Backend.PollIntervalSec = n
	}
	cfg.Bus.Driver = fb.bus
	cfg.Bus.RedisURL = strings.TrimSpace(fb.redisURL)
	cfg.Connectivity.ProbeURL = strings.TrimSpace(fb.probeURL)
	cfg.Log.Level = fb.logLevel
	cfg.Display.UnreadOnly = fb.unreadOnly
	return cfg
}

func (m Model) save() (Model, tea.Cmd) {
	m.mode = ModeSummary

	cfg := m.fb.apply(m.cfg)
	if err := cfg.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	if err := model.SaveConfig(m.path, &cfg); err != nil {
		m.err = err
		return m, nil
	}

	m.cfg = cfg
	return m, func() tea.Msg { return SavedMsg{Config: cfg} }
}

func (m Model) probe() tea.Cmd {
	c := m.cfg.Connectivity
	return func() tea.Msg {
		timeout := time.Duration(c.TimeoutSec) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
		defer cancel()

		mon := connectivity.NewMonitor(c.ProbeURL, time.Duration(c.IntervalSec)*time.Second, timeout)
		return probeResultMsg{url: c.ProbeURL, online: mon.Probe(ctx)}
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a whole number of seconds")
	}
	return nil
}

// View renders the settings view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeForm:
		return style.Render(m.form.View())
	case ModeChecking:
		return style.Render(fmt.Sprintf(
			"%s Checking %s...\n\nPress esc to cancel.",
			m.spinner.View(), m.cfg.Connectivity.ProbeURL,
		))
	case ModeResult:
		result := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen).Render("Reachable")
		if !m.online {
			result = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed).Render("Unreachable")
		}
		return style.Render(result + "\n\n" + theme.HelpStyle.Render("enter/esc back"))
	default:
		return style.Render(m.viewSummary())
	}
}

func (m Model) viewSummary() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	c := m.cfg
	rows := [][2]string{
		{"Config file", m.path},
		{"Backend", c.Backend.Driver},
	}
	switch c.Backend.Driver {
	case model.DriverSQLite:
		rows = append(rows, [2]string{"SQLite file", c.Backend.SQLitePath})
	case model.DriverMongo:
		rows = append(rows, [2]string{"Mongo database", c.Backend.MongoDatabase})
	case model.DriverFirestore:
		rows = append(rows, [2]string{"Firestore project", c.Backend.FirestoreProject})
	}
	rows = append(rows,
		[2]string{"Poll interval", fmt.Sprintf("%ds", c.Backend.PollIntervalSec)},
		[2]string{"Change bus", c.Bus.Driver},
		[2]string{"Probe URL", orNone(c.Connectivity.ProbeURL)},
		[2]string{"Log", fmt.Sprintf("%s at %s", c.Log.Level, c.Log.File)},
		[2]string{"Unread only", strconv.FormatBool(c.Display.UnreadOnly)},
	)

	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", r[0])))
		b.WriteString(r[1])
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(theme.ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("e edit | t test connection | esc back"))
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("Backend changes apply on the next start."))

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
