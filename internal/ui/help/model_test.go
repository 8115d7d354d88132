package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notifier/internal/keys"
)

func TestHelp_ListsSections(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 80)

	content := m.content()
	assert.Contains(t, content, "Keyboard Shortcuts")
	assert.Contains(t, content, "Important notifications popup")
	assert.Contains(t, content, "mark all read")
	assert.Contains(t, content, "read-all")
	assert.Contains(t, content, "exit confirmed")
}
