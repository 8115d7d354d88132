package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notifier/internal/auth"
	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/inbox"
	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/navigate"
	"github.com/nhle/notifier/internal/store"
	"github.com/nhle/notifier/internal/ui"
	"github.com/nhle/notifier/internal/ui/alert"
	"github.com/nhle/notifier/internal/ui/command"
	"github.com/nhle/notifier/internal/ui/compose"
	"github.com/nhle/notifier/internal/ui/detail"
	helpview "github.com/nhle/notifier/internal/ui/help"
	"github.com/nhle/notifier/internal/ui/inboxlist"
	"github.com/nhle/notifier/internal/ui/settings"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewCompose
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the inbox.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	inbox        *inbox.Inbox
	identity     auth.Identity
	conn         connectivity.Signal
	nav          navigate.Navigator
	keys         *keys.KeyMap
	list         inboxlist.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	composeView  compose.Model
	settingsView settings.Model
	hasSettings  bool
	alert        alert.Model
	ready        bool
	unreadCount  int
	loading      bool
	feedErr      error
	statusMsg    string
}

// New creates the root model. The inbox should already be subscribed to
// the signed-in user.
func New(
	ib *inbox.Inbox,
	id auth.Identity,
	conn connectivity.Signal,
	nav navigate.Navigator,
	display model.DisplayConfig,
) Model {
	k := keys.DefaultKeyMap()

	list := inboxlist.New(k, 80, 24)
	list.SetUnreadOnly(display.UnreadOnly)

	return Model{
		currentView: ViewList,
		inbox:       ib,
		identity:    id,
		conn:        conn,
		nav:         nav,
		keys:        k,
		list:        list,
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		composeView: compose.New(80, 24),
		alert:       alert.New(ib, nav),
		loading:     id.UserID != "",
	}
}

// WithSettings enables the settings view for the configuration loaded
// from path.
func (m Model) WithSettings(cfg model.AppConfig, path string) Model {
	m.settingsView = settings.New(cfg, path, m.keys, 80, 24)
	m.hasSettings = true
	return m
}

// Init starts listening for inbox updates.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.list.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.composeView.SetSize(contentWidth, contentHeight)
		m.settingsView.SetSize(contentWidth, contentHeight)
		m.alert.SetWidth(m.layout.ModalWidth())
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case updateMsg:
		return m.applyUpdate(inbox.Update(msg))

	case alert.MarkedReadMsg, alert.NavigatedMsg:
		var cmd tea.Cmd
		m.alert, cmd = m.alert.Update(msg)
		if nm, ok := msg.(alert.NavigatedMsg); ok && nm.Err != nil {
			m.statusMsg = "could not open " + nm.URL
		}
		return m, cmd

	case inboxlist.SelectedMsg:
		for _, n := range m.list.Visible() {
			if n.ID == msg.ID {
				m.detail.SetNotification(n)
				m.previousView = m.currentView
				m.currentView = ViewDetail
				break
			}
		}
		return m, nil

	case inboxlist.MarkReadMsg:
		return m, m.markRead(msg.ID)

	case inboxlist.AcknowledgeMsg:
		return m, m.acknowledge(msg.ID)

	case inboxlist.DismissMsg:
		return m, m.dismiss(msg.ID)

	case inboxlist.MarkAllReadMsg:
		return m, m.markAllRead()

	case inboxlist.OpenActionMsg:
		return m, m.openLink(msg.URL)

	case detail.ActionMsg:
		return m, m.handleDetailAction(msg)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case compose.SubmittedMsg:
		m.currentView = ViewList
		return m, m.send(msg.Draft)

	case compose.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case settings.SavedMsg:
		m.statusMsg = "settings saved"
		return m, m.list.SetUnreadOnly(msg.Config.Display.UnreadOnly)

	case settings.DoneMsg:
		m.currentView = ViewList
		return m, nil

	case sentMsg:
		if msg.id == "" {
			m.statusMsg = "notification not sent, see the log"
		} else {
			m.statusMsg = "notification sent"
		}
		return m, nil

	case linkOpenedMsg:
		if msg.err != nil {
			m.statusMsg = "could not open " + msg.url
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// The alert takes every key while it is up.
		if m.alert.Visible() {
			var cmd tea.Cmd
			m.alert, cmd = m.alert.Update(msg)
			return m, cmd
		}

		if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		if m.capturesText() {
			break
		}

		m.statusMsg = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewList {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.Compose):
			if m.currentView == ViewList {
				return m, m.startCompose()
			}

		case key.Matches(msg, m.keys.Settings):
			if m.currentView == ViewList && m.hasSettings {
				m.openSettings()
				return m, nil
			}

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesText reports whether the active view is taking typed input.
func (m Model) capturesText() bool {
	switch m.currentView {
	case ViewCompose, ViewCommand:
		return true
	case ViewSettings:
		return m.settingsView.Editing()
	case ViewList:
		return m.list.Searching()
	}
	return false
}

// applyUpdate pushes new inbox state into every view and re-arms the feed.
func (m Model) applyUpdate(u inbox.Update) (tea.Model, tea.Cmd) {
	m.unreadCount = u.UnreadCount
	m.loading = u.Loading
	m.feedErr = u.Err

	listCmd := m.list.SetNotifications(u.Notifications, u.Loading)
	m.detail.Refresh(u.Notifications)
	m.alert, _ = m.alert.Update(alert.NotificationsMsg{Notifications: u.Notifications})

	return m, tea.Batch(listCmd, m.waitForUpdate())
}

func (m Model) handleDetailAction(msg detail.ActionMsg) tea.Cmd {
	switch msg.Action {
	case detail.ActionMarkRead:
		return m.markRead(msg.ID)
	case detail.ActionAcknowledge:
		return m.acknowledge(msg.ID)
	case detail.ActionDismiss:
		return m.dismiss(msg.ID)
	case detail.ActionOpenLink:
		return m.openLink(msg.URL)
	}
	return nil
}

func (m *Model) openSettings() {
	m.settingsView.Open()
	m.previousView = ViewList
	m.currentView = ViewSettings
}

func (m *Model) startCompose() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewCompose
	return m.composeView.Start(m.identity.UserID)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "Notifications"
	if m.unreadCount > 0 {
		headerTitle = fmt.Sprintf("Notifications [%d unread]", m.unreadCount)
	}
	header := m.layout.RenderHeader(headerTitle, m.connectionStatus())

	content := m.renderContent()
	if m.alert.Visible() {
		content = m.layout.Overlay(m.alert.View())
	}

	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

// connectionStatus returns a short string describing who is signed in and
// whether the backend is reachable.
func (m Model) connectionStatus() string {
	who := m.identity.Email
	if who == "" {
		who = m.identity.UserID
	}
	if who == "" {
		return "signed out"
	}

	switch {
	case !m.conn.Online():
		return who + " · offline"
	case m.loading:
		return who + " · loading"
	default:
		return who + " · online"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.alert.Visible() {
		return "j/k move | r mark read | enter open link | A mark all read | esc close"
	}
	if m.statusMsg != "" {
		return m.statusMsg
	}
	if m.feedErr != nil && m.currentView == ViewList {
		return fmt.Sprintf("⚠ live updates stopped (%s), see the log", store.Classify(m.feedErr))
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "esc back | r read | a acknowledge | d dismiss | o open link | j/k scroll"
	case ViewCompose:
		return "enter next | shift+tab back | esc cancel"
	case ViewSettings:
		return "e edit | t test connection | esc back"
	default:
		if m.identity.UserID == "" {
			return "not signed in: run `notifier login` | q quit"
		}
		return "q quit | ? help | n new | / search | r read | R read all | u unread only | c settings"
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name {
	case command.Compose:
		m.currentView = ViewList
		return m.startCompose()
	case command.ReadAll:
		return m.markAllRead()
	case command.Unread:
		return m.list.SetUnreadOnly(true)
	case command.All:
		return m.list.SetUnreadOnly(false)
	case command.Settings:
		m.currentView = ViewList
		if !m.hasSettings {
			m.statusMsg = "settings unavailable"
			return nil
		}
		m.openSettings()
		return nil
	case command.Help:
		m.previousView = ViewList
		m.currentView = ViewHelp
		return nil
	case command.Quit:
		return tea.Quit
	default:
		return nil
	}
}
