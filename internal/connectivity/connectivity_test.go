package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	m := NewMonitor(srv.URL, time.Hour, time.Second)
	assert.True(t, m.Online(), "assumed online before the first probe")

	assert.True(t, m.Probe(context.Background()), "an error status still means reachable")

	srv.Close()
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.Online())
}

func TestMonitor_StartStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 10*time.Millisecond, time.Second)
	m.online.Store(false)

	m.Start(context.Background())
	assert.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).Online())
	assert.False(t, Static(false).Online())
}
