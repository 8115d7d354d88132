package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUnread, StatusRead, true},
		{StatusUnread, StatusAcknowledged, true},
		{StatusRead, StatusAcknowledged, true},
		{StatusRead, StatusRead, false},
		{StatusRead, StatusUnread, false},
		{StatusAcknowledged, StatusRead, false},
		{StatusUnread, Status("archived"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestStatus_Predecessors(t *testing.T) {
	assert.Equal(t, []Status{StatusUnread}, StatusRead.Predecessors())
	assert.Equal(t, []Status{StatusUnread, StatusRead}, StatusAcknowledged.Predecessors())
	assert.Empty(t, StatusUnread.Predecessors())
}

func TestNotification_NeedsAttention(t *testing.T) {
	for _, p := range Priorities {
		n := Notification{Status: StatusUnread, Priority: p}
		assert.Equal(t, p.IsHigh(), n.NeedsAttention(), p)

		n.Status = StatusRead
		assert.False(t, n.NeedsAttention(), p)
	}
}

func TestDraft_Validate(t *testing.T) {
	d := Draft{RecipientID: "u1", Title: "Hi"}.WithDefaults()
	assert.NoError(t, d.Validate())
	assert.Equal(t, TypeGeneral, d.Type)
	assert.Equal(t, PriorityMedium, d.Priority)

	err := Draft{Priority: "loud", Type: "spam"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidDraft)
	assert.ErrorContains(t, err, "recipient is required")
	assert.ErrorContains(t, err, "title is required")
	assert.ErrorContains(t, err, `unknown type "spam"`)
	assert.ErrorContains(t, err, `unknown priority "loud"`)
}

func TestDraft_WithDefaultsDropsEmptyAction(t *testing.T) {
	d := Draft{RecipientID: "u1", Title: "Hi", Action: &ActionData{}}.WithDefaults()
	assert.Nil(t, d.Action)

	d = Draft{RecipientID: "u1", Title: "Hi", Action: &ActionData{ActionURL: "https://x.test"}}.WithDefaults()
	assert.Equal(t, "https://x.test", Notification{Action: d.Action}.ActionURL())
}
