package inboxlist_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/ui/inboxlist"
	"github.com/nhle/notifier/tests/testutil"
)

func fixture() []model.Notification {
	now := time.Now()
	read := testutil.Notification("n2", model.PriorityLow, model.StatusRead, now.Add(-time.Hour))
	read.Title = "Weekly report"
	linked := testutil.Notification("n3", model.PriorityUrgent, model.StatusUnread, now.Add(-2*time.Hour))
	linked.Action = &model.ActionData{ActionURL: "https://example.test/a"}
	return []model.Notification{
		testutil.Notification("n1", model.PriorityHigh, model.StatusUnread, now),
		read,
		linked,
	}
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func ids(list []model.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}

func TestInboxList_UnreadOnlyToggle(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(fixture(), false)
	assert.Equal(t, []string{"n1", "n2", "n3"}, ids(m.Visible()))

	m, _ = m.Update(keyPress("u"))
	assert.True(t, m.UnreadOnly())
	assert.Equal(t, []string{"n1", "n3"}, ids(m.Visible()))

	m, _ = m.Update(keyPress("u"))
	assert.Len(t, m.Visible(), 3)
}

func TestInboxList_Search(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(fixture(), false)

	m, _ = m.Update(keyPress("/"))
	require.True(t, m.Searching())
	for _, r := range "weekly" {
		m, _ = m.Update(keyPress(string(r)))
	}
	m, _ = m.Update(keyPress("enter"))

	assert.False(t, m.Searching())
	assert.Equal(t, []string{"n2"}, ids(m.Visible()))
}

func TestInboxList_KeysEmitRequests(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(fixture(), false)

	tests := []struct {
		key  string
		want tea.Msg
	}{
		{"enter", inboxlist.SelectedMsg{ID: "n1"}},
		{"r", inboxlist.MarkReadMsg{ID: "n1"}},
		{"a", inboxlist.AcknowledgeMsg{ID: "n1"}},
		{"d", inboxlist.DismissMsg{ID: "n1"}},
		{"R", inboxlist.MarkAllReadMsg{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, cmd := m.Update(keyPress(tt.key))
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestInboxList_OpenActionNeedsLink(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)
	m.SetNotifications(fixture(), false)

	_, cmd := m.Update(keyPress("o"))
	assert.Nil(t, cmd, "n1 has no action link")

	m, _ = m.Update(keyPress("j"))
	m, _ = m.Update(keyPress("j"))
	_, cmd = m.Update(keyPress("o"))
	require.NotNil(t, cmd)
	assert.Equal(t, inboxlist.OpenActionMsg{URL: "https://example.test/a"}, cmd())
}

func TestInboxList_SelectionSurvivesRefresh(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)
	list := fixture()
	m.SetNotifications(list, false)
	m, _ = m.Update(keyPress("j"))

	sel, ok := m.Selected()
	require.True(t, ok)
	require.Equal(t, "n2", sel.ID)

	fresh := testutil.Notification("n0", model.PriorityLow, model.StatusUnread, time.Now())
	m.SetNotifications(append([]model.Notification{fresh}, list...), false)

	sel, ok = m.Selected()
	require.True(t, ok)
	assert.Equal(t, "n2", sel.ID)
}

func TestInboxList_EmptyStates(t *testing.T) {
	m := inboxlist.New(keys.DefaultKeyMap(), 80, 20)

	m.SetNotifications(nil, true)
	assert.Contains(t, m.View(), "Loading notifications")

	m.SetNotifications(nil, false)
	assert.Contains(t, m.View(), "No notifications.")
}
