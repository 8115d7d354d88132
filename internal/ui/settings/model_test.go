package settings

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/keys"
	"github.com/nhle/notifier/internal/model"
)

func loadDefaults(t *testing.T, path string) model.AppConfig {
	t.Helper()
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	return *cfg
}

func TestSettings_SaveWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(loadDefaults(t, path), path, keys.DefaultKeyMap(), 80, 30)
	m.startForm()

	m.fb.pollInterval = "9"
	m.fb.unreadOnly = true
	m.fb.logLevel = "DEBUG"

	m, cmd := m.save()
	require.NoError(t, m.err)
	require.NotNil(t, cmd)

	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, 9, saved.Config.Backend.PollIntervalSec)

	reloaded := loadDefaults(t, path)
	assert.Equal(t, 9, reloaded.Backend.PollIntervalSec)
	assert.True(t, reloaded.Display.UnreadOnly)
	assert.Equal(t, "DEBUG", reloaded.Log.Level)
}

func TestSettings_InvalidConfigIsNotSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(loadDefaults(t, path), path, keys.DefaultKeyMap(), 80, 30)
	m.startForm()

	m.fb.bus = model.BusRedis
	m.fb.redisURL = ""

	m, cmd := m.save()
	assert.Nil(t, cmd)
	assert.ErrorContains(t, m.err, "redis_url")
	assert.NoFileExists(t, path)
}

func TestSettings_ProbeReportsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := loadDefaults(t, path)
	cfg.Connectivity.ProbeURL = srv.URL
	m := New(cfg, path, keys.DefaultKeyMap(), 80, 30)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	require.Equal(t, ModeChecking, m.mode)

	m, _ = m.Update(m.probe()())
	assert.Equal(t, ModeResult, m.mode)
	assert.Contains(t, m.View(), "Reachable")
}

func TestSettings_ProbeNeedsURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(loadDefaults(t, path), path, keys.DefaultKeyMap(), 80, 30)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	assert.Nil(t, cmd)
	assert.Equal(t, ModeSummary, m.mode)
	assert.Contains(t, m.View(), "no probe URL configured")
}
