package detail_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/ui/detail"
	"github.com/nhle/notifier/tests/testutil"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDetail_RendersActionPayload(t *testing.T) {
	m := detail.New(keys.DefaultKeyMap(), 100, 40)
	n := testutil.Notification("n1", model.PriorityUrgent, model.StatusUnread, time.Now().Add(-time.Hour))
	n.Type = model.TypeExitRequest
	n.Action = &model.ActionData{
		WorkerName:         "Amal",
		WorkerCIN:          "AB123",
		RequesterGroupName: "North farm",
		ActionURL:          "https://example.test/w/1",
	}
	m.SetNotification(n)

	view := m.View()
	assert.Contains(t, view, "Notification n1")
	assert.Contains(t, view, "Exit request")
	assert.Contains(t, view, "Amal (AB123)")
	assert.Contains(t, view, "North farm")
	assert.Contains(t, view, "https://example.test/w/1")
}

func TestDetail_KeysRequestActions(t *testing.T) {
	m := detail.New(keys.DefaultKeyMap(), 100, 40)
	n := testutil.Notification("n1", model.PriorityHigh, model.StatusUnread, time.Now())
	m.SetNotification(n)

	_, cmd := m.Update(runes("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, detail.ActionMsg{Action: detail.ActionAcknowledge, ID: "n1"}, cmd())

	_, cmd = m.Update(runes("o"))
	assert.Nil(t, cmd, "no link to open")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, detail.BackMsg{}, cmd())
}

func TestDetail_RefreshTracksChanges(t *testing.T) {
	m := detail.New(keys.DefaultKeyMap(), 100, 40)
	n := testutil.Notification("n1", model.PriorityHigh, model.StatusUnread, time.Now())
	m.SetNotification(n)

	n.Status = model.StatusRead
	m.Refresh([]model.Notification{n})
	assert.Contains(t, m.View(), "read")
	assert.NotContains(t, m.View(), "dismissed")

	m.Refresh(nil)
	assert.Contains(t, m.View(), "dismissed")

	_, cmd := m.Update(runes("r"))
	assert.Nil(t, cmd, "no actions on a dismissed notification")
}
