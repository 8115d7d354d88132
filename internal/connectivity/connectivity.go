// Package connectivity tracks whether the backend is reachable.
package connectivity

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Signal reports whether the network is currently reachable.
type Signal interface {
	Online() bool
}

// Static is a fixed Signal.
type Static bool

// Online returns the fixed value.
func (s Static) Online() bool {
	return bool(s)
}

// Monitor probes a URL on an interval. Any HTTP response counts as online;
// only transport failures count as offline.
type Monitor struct {
	client   *resty.Client
	url      string
	interval time.Duration

	online atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a Monitor that assumes it is online until the first
// probe says otherwise.
func NewMonitor(url string, interval, timeout time.Duration) *Monitor {
	m := &Monitor{
		client:   resty.New().SetTimeout(timeout),
		url:      url,
		interval: interval,
	}
	m.online.Store(true)
	return m
}

// Online reports the result of the latest probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Probe checks the URL once and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	_, err := m.client.R().SetContext(ctx).Head(m.url)
	online := err == nil
	if prev := m.online.Swap(online); prev != online {
		if online {
			log.Printf("[INFO] connectivity restored (%s)", m.url)
		} else {
			log.Printf("[WARN] connectivity lost (%s): %v", m.url, err)
		}
	}
	return online
}

// Start probes immediately and then on every interval until Stop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Probe(ctx)
			}
		}
	}(m.done)
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
