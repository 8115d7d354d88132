package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(" warn ")
	require.NoError(t, err)
	assert.EqualValues(t, "WARN", level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestFilterDropsLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(NewFilter(&buf, "WARN"), "", 0)

	logger.Print("[DEBUG] noise")
	logger.Print("[INFO] still noise")
	logger.Print("[WARN] kept")
	logger.Print("[ERROR] also kept")

	assert.NotContains(t, buf.String(), "noise")
	assert.Contains(t, buf.String(), "[WARN] kept")
	assert.Contains(t, buf.String(), "[ERROR] also kept")
}
