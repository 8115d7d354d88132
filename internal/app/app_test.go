package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/auth"
	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/inbox"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/navigate"
	"github.com/nhle/notifier/internal/ui/command"
	"github.com/nhle/notifier/internal/ui/compose"
	"github.com/nhle/notifier/internal/ui/settings"
	"github.com/nhle/notifier/tests/testutil"
)

func newTestApp(t *testing.T) (Model, *inbox.Inbox) {
	t.Helper()

	ib := inbox.New(testutil.NewTestStore(t), connectivity.Static(true))
	t.Cleanup(ib.Close)

	nav := navigate.Func(func(string) error { return nil })
	m := New(ib, auth.Identity{UserID: "user-1", Email: "ops@example.test"}, connectivity.Static(true), nav, model.DisplayConfig{})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), ib
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestApp_UrgentNotificationRaisesAlert(t *testing.T) {
	m, _ := newTestApp(t)
	now := time.Now()

	m, _ = step(t, m, updateMsg{
		UserID: "user-1",
		Notifications: []model.Notification{
			testutil.Notification("n1", model.PriorityUrgent, model.StatusUnread, now),
			testutil.Notification("n2", model.PriorityLow, model.StatusUnread, now.Add(-time.Minute)),
		},
		UnreadCount: 2,
	})

	view := m.View()
	assert.Contains(t, view, "Important notifications")
	assert.Contains(t, view, "[2 unread]")
	assert.Contains(t, view, "ops@example.test · online")

	// The alert takes keys while it is up.
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.NotContains(t, m.View(), "Important notifications")
	assert.Contains(t, m.View(), "Notification n2")
}

func TestApp_SameNotificationsDoNotRaiseAlertTwice(t *testing.T) {
	m, _ := newTestApp(t)
	list := []model.Notification{
		testutil.Notification("n1", model.PriorityHigh, model.StatusUnread, time.Now()),
	}

	m, _ = step(t, m, updateMsg{Notifications: list, UnreadCount: 1})
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = step(t, m, updateMsg{Notifications: list, UnreadCount: 1})

	assert.NotContains(t, m.View(), "Important notifications")
}

func TestApp_FeedErrorShownInStatusBar(t *testing.T) {
	m, _ := newTestApp(t)

	m, _ = step(t, m, updateMsg{Err: assert.AnError})
	assert.Contains(t, m.View(), "live updates stopped (unknown)")
}

func TestApp_SelectOpensDetail(t *testing.T) {
	m, _ := newTestApp(t)
	n := testutil.Notification("n1", model.PriorityLow, model.StatusRead, time.Now())
	n.Message = "Shift change at noon"

	m, _ = step(t, m, updateMsg{Notifications: []model.Notification{n}})
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m, _ = step(t, m, cmd())
	assert.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "Shift change at noon")

	m, cmd = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())
	assert.Equal(t, ViewList, m.currentView)
}

func TestApp_ComposeSends(t *testing.T) {
	m, ib := newTestApp(t)
	ib.Subscribe("user-1")

	m, cmd := step(t, m, compose.SubmittedMsg{Draft: testutil.Draft("user-2", "Hello", model.PriorityMedium)})
	require.NotNil(t, cmd)

	msg := cmd()
	sent, ok := msg.(sentMsg)
	require.True(t, ok)
	assert.NotEmpty(t, sent.id)

	m, _ = step(t, m, msg)
	assert.True(t, strings.Contains(m.View(), "notification sent"))
}

func TestApp_QuitFromList(t *testing.T) {
	m, _ := newTestApp(t)

	_, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_SettingsOpenAndClose(t *testing.T) {
	m, _ := newTestApp(t)
	m = m.WithSettings(model.AppConfig{Backend: model.BackendConfig{Driver: model.DriverSQLite}}, "/tmp/notifier.yaml")

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.Equal(t, ViewSettings, m.currentView)
	assert.Contains(t, m.View(), "/tmp/notifier.yaml")

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, _ = step(t, m, cmd())
	assert.Equal(t, ViewList, m.currentView)
}

func TestApp_SettingsSavedAppliesUnreadOnly(t *testing.T) {
	m, _ := newTestApp(t)
	require.False(t, m.list.UnreadOnly())

	cfg := model.AppConfig{Display: model.DisplayConfig{UnreadOnly: true}}
	m, _ = step(t, m, settings.SavedMsg{Config: cfg})

	assert.True(t, m.list.UnreadOnly())
	assert.Contains(t, m.View(), "settings saved")
}

func TestApp_SettingsCommandWithoutConfig(t *testing.T) {
	m, _ := newTestApp(t)

	m, _ = step(t, m, command.CommandMsg{Name: command.Settings})
	assert.Equal(t, ViewList, m.currentView)
	assert.Contains(t, m.View(), "settings unavailable")
}
