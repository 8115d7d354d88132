package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestChangeStreamPipeline_FiltersByRecipient(t *testing.T) {
	pipeline := changeStreamPipeline("user-1")
	require.Len(t, pipeline, 1)

	raw, err := bson.MarshalExtJSON(pipeline[0], false, false)
	require.NoError(t, err)
	got := string(raw)

	assert.Contains(t, got, `"fullDocument.recipient_id":"user-1"`)
	assert.Contains(t, got, `{"operationType":"delete"}`)
	assert.Contains(t, got, `"$in":["insert","update","replace"]`)
}
