package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notifier/internal/model"
)

func TestIcon_Precedence(t *testing.T) {
	tests := []struct {
		name string
		n    model.Notification
		want string
	}{
		{"urgent wins over type", model.Notification{Priority: model.PriorityUrgent, Type: model.TypeExitConfirmed}, "⚠"},
		{"high wins over type", model.Notification{Priority: model.PriorityHigh, Type: model.TypeExitConfirmed}, "🔔"},
		{"exit confirmed", model.Notification{Priority: model.PriorityLow, Type: model.TypeExitConfirmed}, "✓"},
		{"generic", model.Notification{Priority: model.PriorityMedium, Type: model.TypeExitRequest}, "ℹ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			icon, _ := Icon(tt.n)
			assert.Equal(t, tt.want, icon)
		})
	}
}
