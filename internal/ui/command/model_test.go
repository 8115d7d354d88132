package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/ui/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want command.CommandMsg
	}{
		{"compose", command.CommandMsg{Name: command.Compose, Args: []string{}}},
		{"comp", command.CommandMsg{Name: command.Compose, Args: []string{}}},
		{"  READ-ALL ", command.CommandMsg{Name: command.ReadAll, Args: []string{}}},
		{"unread", command.CommandMsg{Name: command.Unread, Args: []string{}}},
		{"q", command.CommandMsg{Name: command.Quit, Args: []string{}}},
		{"set", command.CommandMsg{Name: command.Settings, Args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := command.Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := command.Parse("")
	assert.Error(t, err)

	_, err = command.Parse("frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}
