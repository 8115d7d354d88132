package store

import (
	"context"
	"sync"
)

// ChangeBus carries "something changed for this recipient" signals between
// writers and live queries of polling backends.
type ChangeBus interface {
	Publish(ctx context.Context, recipientID string) error
	// Subscribe returns a channel that receives a value after each publish
	// for recipientID. Signals coalesce; the channel closes when ctx is done.
	Subscribe(ctx context.Context, recipientID string) <-chan struct{}
	Close() error
}

// LocalBus is an in-process ChangeBus.
type LocalBus struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish signals every subscriber of recipientID without blocking.
func (b *LocalBus) Publish(_ context.Context, recipientID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[recipientID] {
		signal(ch)
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (b *LocalBus) Subscribe(ctx context.Context, recipientID string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[recipientID] == nil {
		b.subs[recipientID] = make(map[chan struct{}]struct{})
	}
	b.subs[recipientID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[recipientID], ch)
		if len(b.subs[recipientID]) == 0 {
			delete(b.subs, recipientID)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Close is a no-op; subscriptions end with their contexts.
func (b *LocalBus) Close() error {
	return nil
}

// signal does a non-blocking send on a capacity-one channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
