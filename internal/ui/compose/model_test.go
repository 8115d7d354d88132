package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notifier/internal/model"
)

func TestDraftFromBindings(t *testing.T) {
	d := formBindings{
		recipient: " user-2 ",
		title:     "Exit request",
		message:   "Amal asked to leave",
		kind:      model.TypeExitRequest,
		priority:  model.PriorityUrgent,
		actionURL: "https://example.test/w/1",
	}.draft()

	assert.Equal(t, "user-2", d.RecipientID)
	assert.Equal(t, model.TypeExitRequest, d.Type)
	assert.NoError(t, d.Validate())
	if assert.NotNil(t, d.Action) {
		assert.Equal(t, "https://example.test/w/1", d.Action.ActionURL)
	}
}

func TestDraftWithoutActionHasNilPayload(t *testing.T) {
	d := formBindings{recipient: "u", title: "t", message: "m"}.draft()
	assert.Nil(t, d.Action)
}

func TestValidateOptionalURL(t *testing.T) {
	assert.NoError(t, validateOptionalURL(""))
	assert.NoError(t, validateOptionalURL("https://example.test/x"))
	assert.Error(t, validateOptionalURL("javascript:alert(1)"))
	assert.Error(t, validateOptionalURL("/relative"))
}

func TestValidateRequired(t *testing.T) {
	assert.Error(t, validateRequired("Title")("   "))
	assert.NoError(t, validateRequired("Title")("x"))
}
